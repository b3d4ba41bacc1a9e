//go:build !race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost(configured int) int {
	if configured < bcrypt.MinCost || configured > bcrypt.MaxCost {
		return 12
	}
	return configured
}
