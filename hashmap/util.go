package hashmap

import "fmt"

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}

func minint32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
