package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON 自由格式元数据（存储为 jsonb）
type JSON map[string]interface{}

// Value 实现 driver.Valuer
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON: %T", value)
	}
	if len(b) == 0 {
		*j = JSON{}
		return nil
	}
	return json.Unmarshal(b, j)
}

// Clone 返回浅拷贝，nil 返回空 map
func (j JSON) Clone() JSON {
	out := make(JSON, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}
