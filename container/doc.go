// Package container implements List, Bitarray and Queue over memory
// obtained from malloc.Manager. Containers are not safe for concurrent
// use, and element types must not hold pointers.
package container
