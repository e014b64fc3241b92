package malloc

import "testing"
import "unsafe"

func unsafePointer(data []byte) unsafe.Pointer {
	return unsafe.Pointer(&data[0])
}

func TestCeil(t *testing.T) {
	testcases := [][3]int64{
		{0, 8, 0}, {1, 8, 1}, {8, 8, 1}, {9, 8, 2}, {4097, 4096, 2},
	}
	for _, tcase := range testcases {
		if x := ceil(tcase[0], tcase[1]); x != tcase[2] {
			t.Errorf("ceil(%v,%v) expected %v, got %v", tcase[0], tcase[1], tcase[2], x)
		}
	}
}

func TestInitblock(t *testing.T) {
	data := make([]byte, 3000)
	for i := range data {
		data[i] = 0x55
	}
	initblock(unsafePointer(data), int64(len(data)))
	for i, c := range data {
		if c != 0 && c != 0xff {
			t.Fatalf("byte %v not initialized, %x", i, c)
		}
	}
}
