package transfer

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// GroupList tolerates the three group-claim encodings identity providers
// emit: a JSON array, a single string, and a bracketed "[a, b]" string.
type GroupList []string

func (g *GroupList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}

	if strings.HasPrefix(single, "[") && strings.HasSuffix(single, "]") {
		inner := strings.TrimSuffix(strings.TrimPrefix(single, "["), "]")
		for _, part := range strings.Split(inner, ",") {
			if p := strings.TrimSpace(part); p != "" {
				list = append(list, p)
			}
		}
		*g = list
		return nil
	}

	*g = GroupList{single}
	return nil
}

// Contains reports membership of a group name.
func (g GroupList) Contains(name string) bool {
	for _, v := range g {
		if v == name {
			return true
		}
	}
	return false
}

type CustomClaims struct {
	UserID   string    `json:"user_id"`
	TenantID string    `json:"tenant_id"`
	Groups   GroupList `json:"cognito:groups"`
	jwt.RegisteredClaims
}
