package allocation

import (
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// ExportPayload 是备份导出文件的格式
type ExportPayload struct {
	Sites          []domain.Site      `json:"sites"`
	People         []domain.Person    `json:"people"`
	Vehicles       []domain.Vehicle   `json:"vehicles"`
	LastUpdateInfo *domain.UpdateInfo `json:"lastUpdateInfo"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Export 导出当前全部数据
func (e *Engine) Export() ExportPayload {
	data := e.Snapshot()
	return ExportPayload{
		Sites:          data.Sites,
		People:         data.People,
		Vehicles:       data.Vehicles,
		LastUpdateInfo: data.LastUpdate,
		Timestamp:      time.Now(),
	}
}

// Import 从导出文件整体恢复数据。
// sites、people、vehicles 三个字段缺一不可，防止误导入其他 JSON 文件
func (e *Engine) Import(raw []byte) error {
	var payload struct {
		Sites          *[]domain.Site     `json:"sites"`
		People         *[]domain.Person   `json:"people"`
		Vehicles       *[]domain.Vehicle  `json:"vehicles"`
		LastUpdateInfo *domain.UpdateInfo `json:"lastUpdateInfo"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ErrInvalidImport
	}
	if payload.Sites == nil || payload.People == nil || payload.Vehicles == nil {
		return ErrInvalidImport
	}

	e.ReplaceAll(domain.BoardData{
		Sites:      *payload.Sites,
		People:     *payload.People,
		Vehicles:   *payload.Vehicles,
		LastUpdate: payload.LastUpdateInfo,
	})
	return nil
}
