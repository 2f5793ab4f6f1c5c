package core

// RpcAddressResolver maps a committee slot index to the worker's RPC
// endpoint. Grounded on original_source/fangorn/src/rpc/resolver.rs's
// IrohRpcResolver, which looked this up in the doc layer; this repo's
// deployments are small and fixed-size, so a StaticResolver backed by
// config is the idiomatic fit (no extra doc round trip per lookup).

import "fmt"

// RpcAddressResolver resolves a committee slot to an RPC address.
type RpcAddressResolver interface {
	Resolve(nodeIndex uint32) (string, error)
}

// StaticResolver resolves against a fixed node_id -> address map loaded
// from deployment configuration.
type StaticResolver struct {
	addresses map[uint32]string
}

// NewStaticResolver builds a resolver from a slot -> "host:port" map.
func NewStaticResolver(addresses map[uint32]string) *StaticResolver {
	return &StaticResolver{addresses: addresses}
}

func (r *StaticResolver) Resolve(nodeIndex uint32) (string, error) {
	addr, ok := r.addresses[nodeIndex]
	if !ok {
		return "", fmt.Errorf("rpc resolver: no address configured for worker %d", nodeIndex)
	}
	return addr, nil
}
