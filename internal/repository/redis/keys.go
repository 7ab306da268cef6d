package redis

import "fmt"

const ns = "parkgo:v1"

// KeyLotSnapshot names the cached snapshot of store generation gen.
func KeyLotSnapshot(gen uint64) string {
	return fmt.Sprintf("%s:lot:snapshot:%d", ns, gen)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdemPark(idemKey string) string {
	return fmt.Sprintf("%s:idem:park:%s", ns, idemKey)
}

func KeyIdemUnpark(idemKey string) string {
	return fmt.Sprintf("%s:idem:unpark:%s", ns, idemKey)
}

func ChannelLotChanged() string {
	return ns + ":lot:changed"
}
