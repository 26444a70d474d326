package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/lamc/compiler"
)

// HashExpr computes the SHA-256 content hash of an expression.
//
// The hash is computed over a deterministic serialization of the normalized
// tree with de Bruijn variable indexing. Expressions that differ only in the
// names of bound variables produce the same hash.
func HashExpr(expr compiler.Expr) [32]byte {
	return sha256.Sum256(Serialize(Normalize(expr)))
}

// HexHash is HashExpr rendered as lowercase hex.
func HexHash(expr compiler.Expr) string {
	h := HashExpr(expr)
	return hex.EncodeToString(h[:])
}
