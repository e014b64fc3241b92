package container

import "github.com/bnclabs/umem/api"
import s "github.com/bnclabs/gosettings"

// Defaultsettings for containers.
//
// "capacity" (int64, default: 16)
//		Initial capacity for List, fixed capacity for Queue.
//
// "allocator" (int64, default: api.Persistent)
//		Allocator handle for backing storage.
func Defaultsettings() s.Settings {
	return s.Settings{
		"capacity":  int64(16),
		"allocator": int64(api.Persistent),
	}
}
