// Copyright 2026 Meshlayer
//
// Minimal ABI calldata encoding for the four contract calls the
// registrar needs: ERC-20 balanceOf/approve and the node-registry's
// registerNode/isActiveNode. Hand-encoded against the standard
// selector+word-padding ABI layout (go-ethereum's accounts/abi package
// expects a parsed contract ABI JSON, which we don't ship here) rather
// than built through full contract bindings.

package evmclient

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func padLeft32(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func balanceOfCalldata(owner common.Address) []byte {
	data := selector("balanceOf(address)")
	data = append(data, padLeft32(owner.Bytes())...)
	return data
}

func approveCalldata(spender common.Address, amount *big.Int) []byte {
	data := selector("approve(address,uint256)")
	data = append(data, padLeft32(spender.Bytes())...)
	data = append(data, padLeft32(amount.Bytes())...)
	return data
}

func isActiveNodeCalldata(node common.Address) []byte {
	data := selector("isActiveNode(address)")
	data = append(data, padLeft32(node.Bytes())...)
	return data
}

// registerNodeCalldata encodes registerNode(string,string,bytes32[]).
// Dynamic-type ABI encoding: three head words (offsets) followed by the
// tail encoding of each dynamic argument in order.
func registerNodeCalldata(metadataJSON, apiURL string, modelIDs [][32]byte) []byte {
	data := selector("registerNode(string,string,bytes32[])")

	metadataOffset := big.NewInt(3 * 32)
	metadataTail := encodeDynamicString(metadataJSON)

	apiURLOffset := new(big.Int).Add(metadataOffset, big.NewInt(int64(len(metadataTail))))
	apiURLTail := encodeDynamicString(apiURL)

	modelIDsOffset := new(big.Int).Add(apiURLOffset, big.NewInt(int64(len(apiURLTail))))
	modelIDsTail := encodeBytes32Array(modelIDs)

	data = append(data, padLeft32(metadataOffset.Bytes())...)
	data = append(data, padLeft32(apiURLOffset.Bytes())...)
	data = append(data, padLeft32(modelIDsOffset.Bytes())...)
	data = append(data, metadataTail...)
	data = append(data, apiURLTail...)
	data = append(data, modelIDsTail...)
	return data
}

func encodeDynamicString(s string) []byte {
	raw := []byte(s)
	length := padLeft32(big.NewInt(int64(len(raw))).Bytes())
	padded := make([]byte, ((len(raw)+31)/32)*32)
	copy(padded, raw)
	out := make([]byte, 0, len(length)+len(padded))
	out = append(out, length...)
	out = append(out, padded...)
	return out
}

func encodeBytes32Array(items [][32]byte) []byte {
	length := padLeft32(big.NewInt(int64(len(items))).Bytes())
	out := make([]byte, 0, len(length)+32*len(items))
	out = append(out, length...)
	for _, item := range items {
		out = append(out, item[:]...)
	}
	return out
}

func newLegacyTx(nonce uint64, to common.Address, gasPrice *big.Int, gasLimit uint64, data []byte) *types.Transaction {
	if gasLimit == 0 {
		gasLimit = 500_000
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
}
