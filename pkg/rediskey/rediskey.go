package rediskey

import "fmt"

// Key prefixes shared by every service writing to the same redis.
const (
	IdempotencyPrefix = "idempotency"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildIdempotencyKey returns "idempotency:{scope}:{key}"
func BuildIdempotencyKey(scope, key string) string {
	return NamespaceKey(NamespaceKey(IdempotencyPrefix, scope), key)
}
