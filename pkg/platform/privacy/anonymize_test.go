package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	cases := map[string]string{
		"192.168.1.47":                 "192.168.1.0",
		"10.0.0.0":                     "10.0.0.0",
		"127.0.0.1":                    "127.0.0.0",
		"::ffff:203.0.113.9":           "203.0.113.0",
		"2001:db8:85a3::8a2e:370:7334": "2001:db8:85a3::",
		"2001:db8:85a3:1:2:3:4:5":      "2001:db8:85a3::",
		"fe80::1%eth0":                 "fe80::",
		"::1":                          "::",
		"":                             "unknown",
		"unknown":                      "unknown",
		"not-an-ip":                    "invalid",
		"192.168.1.256":                "invalid",
		"192.168.1.1:8080":             "invalid",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, AnonymizeIP(in))
		})
	}
}
