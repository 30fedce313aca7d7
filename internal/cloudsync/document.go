// Package cloudsync 实现看板数据与远端共享文档之间的双向同步：
// 本地变更经防抖后整体写到远端，远端变更经订阅推送后整体替换本地。
// 冲突采用后写覆盖，以完成时刻的先后为准。
package cloudsync

import (
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// Document 是远端共享文档的结构。
// 各集合字段保存的是再编码一次的 JSON 字符串，而不是嵌套对象，
// 这样远端存储只需处理平面的字符串字段
type Document struct {
	Sites          string    `json:"sites"`
	People         string    `json:"people"`
	Vehicles       string    `json:"vehicles"`
	LastUpdateInfo string    `json:"lastUpdateInfo"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// EncodeDocument 把看板数据编码为远端文档
func EncodeDocument(data domain.BoardData, updatedAt time.Time) (Document, error) {
	sites, err := json.Marshal(data.Sites)
	if err != nil {
		return Document{}, err
	}
	people, err := json.Marshal(data.People)
	if err != nil {
		return Document{}, err
	}
	vehicles, err := json.Marshal(data.Vehicles)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Sites:     string(sites),
		People:    string(people),
		Vehicles:  string(vehicles),
		UpdatedAt: updatedAt,
	}
	if data.LastUpdate != nil {
		info, err := json.Marshal(data.LastUpdate)
		if err != nil {
			return Document{}, err
		}
		doc.LastUpdateInfo = string(info)
	}
	return doc, nil
}

// DecodeDocument 把远端文档解码为看板数据。
// 单个字段损坏时放弃整个文档，绝不应用半份数据
func DecodeDocument(doc Document) (domain.BoardData, error) {
	var data domain.BoardData

	if doc.Sites != "" {
		if err := json.Unmarshal([]byte(doc.Sites), &data.Sites); err != nil {
			return domain.BoardData{}, err
		}
	}
	if doc.People != "" {
		if err := json.Unmarshal([]byte(doc.People), &data.People); err != nil {
			return domain.BoardData{}, err
		}
	}
	if doc.Vehicles != "" {
		if err := json.Unmarshal([]byte(doc.Vehicles), &data.Vehicles); err != nil {
			return domain.BoardData{}, err
		}
	}
	if doc.LastUpdateInfo != "" {
		if err := json.Unmarshal([]byte(doc.LastUpdateInfo), &data.LastUpdate); err != nil {
			return domain.BoardData{}, err
		}
	}
	return data, nil
}
