package credential

import (
	"regexp"

	"github.com/9531lyj/AutoCheckBJMF/internal/model"
)

// SessionCookieKey is the fixed cookie name carrying the student session
// token on the classroom platform.
const SessionCookieKey = "remember_student_59ba36addc2b2f9401580f014c7f58ea4e30989d"

var (
	labelPattern  = regexp.MustCompile(`username=([^;]+)`)
	cookiePattern = regexp.MustCompile(SessionCookieKey + `=[^;]+`)
)

// Parse extracts the optional display label and the session cookie from a
// raw credential string. The second return value is false when the session
// cookie key is absent; that is an expected branch (misconfigured entry),
// not an error.
func Parse(raw string) (model.Account, bool) {
	cookie := cookiePattern.FindString(raw)
	if cookie == "" {
		return model.Account{}, false
	}

	account := model.Account{
		Raw:    raw,
		Cookie: cookie,
	}
	if m := labelPattern.FindStringSubmatch(raw); m != nil {
		account.Label = m[1]
	}
	return account, true
}
