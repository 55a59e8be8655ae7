// Package ec implements short Weierstrass curve arithmetic over prime fields
// and the GOST R 34.10-2012 signature scheme on top of it.
//
// Scalar multiplication is a plain double-and-add over math/big and is not
// constant time. It is suitable for signing files on a trusted host, not for
// code that shares a machine with an attacker who can measure it.
package ec
