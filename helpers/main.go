package helpers

import (
	"github.com/dgrijalva/jwt-go"
)

func ParserTokenUnverified(tokenStr string) (jwt.MapClaims, bool) {
	var p jwt.Parser
	token, _, err := p.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}
	tokendata, ok := token.Claims.(jwt.MapClaims)
	return tokendata, ok
}

func Contains(a []int, x int) bool {
	for _, n := range a {
		if x == n {
			return true
		}
	}
	return false
}
