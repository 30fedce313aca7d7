package seed

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/config"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/repository"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/utils"
)

var siteNames = []string{
	"站前大楼现场", "东町仓库现场", "河畔管网现场", "中央公园现场",
	"南口立交现场", "港区码头现场", "学园町现场", "西丘宅地现场",
}

var vehicleNames = []string{
	"1号卡车", "2号卡车", "轻型货车", "面包车", "自卸车", "吊车", "平板车",
}

// SeedBoard 生成一份随机的看板数据并写入本地库。
// 人员全部初始在休息，现场与车辆按配置的数量取名
func SeedBoard(cfg *config.Config, r *repository.Repository) {
	data := domain.BoardData{}

	siteCount := min(cfg.Seed.SiteCount, len(siteNames))
	for i := 0; i < siteCount; i++ {
		data.Sites = append(data.Sites, domain.Site{
			ID:    fmt.Sprintf("site-%02d", i+1),
			Name:  siteNames[i],
			Order: i,
		})
	}

	vehicleCount := min(cfg.Seed.VehicleCount, len(vehicleNames))
	for i := 0; i < vehicleCount; i++ {
		data.Vehicles = append(data.Vehicles, domain.Vehicle{
			ID:   fmt.Sprintf("vehicle-%02d", i+1),
			Name: vehicleNames[i],
		})
	}

	seen := make(map[string]bool)
	for len(data.People) < cfg.Seed.PeopleCount {
		person := utils.GenerateRandomPerson()
		if seen[person.ID] {
			continue
		}
		seen[person.ID] = true

		// 大约一半人直接分到现场，更接近白天看板的实际状态
		if siteCount > 0 && rand.Intn(2) == 0 {
			person.SiteID = data.Sites[rand.Intn(siteCount)].ID
			if vehicleCount > 0 && rand.Intn(3) > 0 {
				person.VehicleID = data.Vehicles[rand.Intn(vehicleCount)].ID
			}
		}
		data.People = append(data.People, person)
	}

	if err := r.SaveAll(data); err != nil {
		slog.Error("写入初始数据失败", "error", err)
		return
	}

	slog.Info("初始数据写入完成",
		"sites", len(data.Sites),
		"vehicles", len(data.Vehicles),
		"people", len(data.People),
	)
}
