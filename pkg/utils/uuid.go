package utils

import "github.com/google/uuid"

// IsUUID 主键均为 uuid 列，非法格式在查库前拦截
// 只接受标准 36 位带连字符格式
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
