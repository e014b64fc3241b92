package lib

import "reflect"
import "encoding/json"

// Alignup round `n` up to the next multiple of `align`, align must be
// a power of 2.
func Alignup(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}

// Nextpow2 return the smallest power of 2 that is >= n.
func Nextpow2(n int64) int64 {
	if n <= 1 {
		return 1
	}
	p := int64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Ispow2 return true if n is a power of 2.
func Ispow2(n int64) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Haspointers return true if values of type `typ` hold references
// to memory managed by golang runtime. Such values cannot be placed
// in memory obtained outside the runtime.
func Haspointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint8,
		reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64,
		reflect.Complex128:
		return false

	case reflect.Array:
		if typ.Len() == 0 {
			return false
		}
		return Haspointers(typ.Elem())

	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if Haspointers(typ.Field(i).Type) {
				return true
			}
		}
		return false
	}
	// pointer, unsafe-pointer, string, slice, map, chan, func, interface
	return true
}

// Prettystats uses json.MarshalIndent, if pretty is true, instead of
// json.Marshal. If Marshal return error Prettystats will panic.
func Prettystats(stats map[string]interface{}, pretty bool) string {
	if pretty {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			panic(err)
		}
		return string(data)
	}
	data, err := json.Marshal(stats)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// AbsInt64 absolute value of int64 number. Except for -2^63, where
// returned value will be same as input.
func AbsInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
