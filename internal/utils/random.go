package utils

import (
	"math/rand"

	"github.com/mozillazg/go-pinyin"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// 角色按大致的实际人数比例分布，作业员最多
var roles = []domain.Role{
	domain.RoleManager,
	domain.RoleStaff,
	domain.RoleOperator,
	domain.RoleOperator,
	domain.RoleWorker,
	domain.RoleWorker,
	domain.RoleWorker,
	domain.RoleWorker,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

// GenerateIDFromChineseName 用姓名拼音加随机数字生成可读的 ID
func GenerateIDFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	id := ""

	for _, syllable := range pinyinArray {
		id += syllable
	}

	digitsLength := rand.Intn(3) + 2
	for i := 0; i < digitsLength; i++ {
		id += string(digits[rand.Intn(len(digits))])
	}

	return id
}

// GenerateRandomPerson 生成一名随机人员，初始在休息
func GenerateRandomPerson() domain.Person {
	name := GenerateRandomChineseName()
	return domain.Person{
		ID:       GenerateIDFromChineseName(name),
		Name:     name,
		Role:     GenerateRandomRole(),
		SiteID:   domain.OffDutySiteID,
		HasLunch: rand.Intn(2) == 0,
	}
}
