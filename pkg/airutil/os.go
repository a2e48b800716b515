package airutil

import "github.com/drone/envsubst"

// ExpandEnv substitutes ${VAR} style environment variables in s. It is
// applied to user-supplied registry urls and output paths so that
// configuration files can stay environment-agnostic.
func ExpandEnv(s string) string {
	val, _ := envsubst.EvalEnv(s)
	return val
}
