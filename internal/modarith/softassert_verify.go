//go:build zcubes_verify

package modarith

// softAssert panics on a failed invariant. Only compiled into verify builds
// (go build -tags zcubes_verify), matching the distilled spec's "soft-asserts
// compile out in production builds."
func softAssert(cond bool, msg string) {
	if !cond {
		panic("modarith: invariant violated: " + msg)
	}
}
