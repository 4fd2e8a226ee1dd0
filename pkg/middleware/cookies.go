package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
)

// Context keys set by CookieParser
const (
	CookiesKey       = "cookies"
	SignedCookiesKey = "signed_cookies"
)

// CookieParser exposes request cookies as a map under CookiesKey. Cookies
// that decode with the codec are also exposed under SignedCookiesKey with
// their verified value; tampered or unsigned cookies are left out.
func CookieParser(codec securecookie.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		plain := make(map[string]string)
		signed := make(map[string]string)

		for _, ck := range c.Request.Cookies() {
			plain[ck.Name] = ck.Value
			if codec == nil {
				continue
			}
			var v string
			if err := codec.Decode(ck.Name, ck.Value, &v); err == nil {
				signed[ck.Name] = v
			}
		}

		c.Set(CookiesKey, plain)
		c.Set(SignedCookiesKey, signed)
		c.Next()
	}
}

// Cookies returns the cookie map set by CookieParser
func Cookies(c *gin.Context) map[string]string {
	if v, ok := c.Get(CookiesKey); ok {
		if m, ok := v.(map[string]string); ok {
			return m
		}
	}
	return nil
}

// SignedCookies returns the verified cookie map set by CookieParser
func SignedCookies(c *gin.Context) map[string]string {
	if v, ok := c.Get(SignedCookiesKey); ok {
		if m, ok := v.(map[string]string); ok {
			return m
		}
	}
	return nil
}
