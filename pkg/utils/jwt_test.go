package utils

import (
	"marketplace/internal/pkg/config"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	config.GlobalConfig.JWT.Secret = strings.Repeat("k", 32)

	token, expireAt, err := GenerateToken("user-1", "SELLER")
	require.NoError(t, err)
	require.NotNil(t, expireAt)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "SELLER", claims.Role)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	config.GlobalConfig.JWT.Secret = strings.Repeat("a", 32)
	token, _, err := GenerateToken("user-1", "ADMIN")
	require.NoError(t, err)

	config.GlobalConfig.JWT.Secret = strings.Repeat("b", 32)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestPagination(t *testing.T) {
	p := Pagination{Page: 0, Limit: 500}
	offset, limit := p.GetPageOffset()
	assert.Equal(t, 0, offset)
	assert.Equal(t, 100, limit)

	p = Pagination{Page: 3, Limit: 10}
	offset, limit = p.GetPageOffset()
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)
}
