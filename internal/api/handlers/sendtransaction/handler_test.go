package sendtransaction_test

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/jsonrpc"
	"github/chapool/go-ethsigner/internal/test"
)

const (
	recipient    = "0x1b00ba00ca00bb00aa00bc00be00ac00ca00da00"
	sendRaw      = "eth_sendRawTransaction"
	pendingCount = "eth_getTransactionCount"
	txHash       = `"0xe670ec64341771606e55d6b4ca35a1a6b75ee3d5145a99d05921026d1527331"`
)

func sendTransactionBody(t *testing.T, id string, fields map[string]interface{}) string {
	t.Helper()

	params, err := json.Marshal([]interface{}{fields})
	require.NoError(t, err)

	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"method":"eth_sendTransaction","params":%s}`, id, params)
}

func valueTransfer(t *testing.T) map[string]interface{} {
	t.Helper()

	return map[string]interface{}{
		"from":     test.SignerAddress(t).Hex(),
		"to":       recipient,
		"gas":      "0x5208",
		"gasPrice": "0x4a817c800",
		"value":    "0x184f03e93ff9f4000",
	}
}

func submittedTransactions(t *testing.T, node *test.StubNode) []*types.Transaction {
	t.Helper()

	var out []*types.Transaction
	for _, r := range node.Requests(sendRaw) {
		require.NotNil(t, r.RPC)

		var params []string
		require.NoError(t, json.Unmarshal(r.RPC.Params, &params))
		require.Len(t, params, 1)

		tx := new(types.Transaction)
		require.NoError(t, tx.UnmarshalBinary(hexutil.MustDecode(params[0])))
		out = append(out, tx)
	}

	return out
}

func TestSendTransactionValueTransfer(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.Result(txHash))

		res := test.PerformRPC(t, s, sendTransactionBody(t, `42`, valueTransfer(t)))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		parsed := test.ParseRPCResponse(t, res)
		assert.JSONEq(t, `42`, string(parsed.ID))
		assert.JSONEq(t, txHash, string(parsed.Result))

		raws := node.Requests(sendRaw)
		require.Len(t, raws, 1)
		assert.JSONEq(t, `42`, string(raws[0].RPC.ID))

		txs := submittedTransactions(t, node)
		require.Len(t, txs, 1)
		tx := txs[0]

		sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(test.TestChainID)), tx)
		require.NoError(t, err)
		assert.Equal(t, test.SignerAddress(t), sender)

		expectedValue, _ := new(big.Int).SetString("184f03e93ff9f4000", 16)
		assert.Equal(t, uint64(0), tx.Nonce())
		assert.Equal(t, uint64(0x5208), tx.Gas())
		assert.Equal(t, 0, tx.GasPrice().Cmp(big.NewInt(0x4a817c800)))
		assert.Equal(t, 0, tx.Value().Cmp(expectedValue))
		assert.Equal(t, common.HexToAddress(recipient), *tx.To())
		assert.Empty(t, tx.Data())
		assert.Equal(t, 0, tx.ChainId().Cmp(big.NewInt(test.TestChainID)))
	})
}

func TestSendTransactionDefaults(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x7"`))
		node.Respond(sendRaw, test.Result(txHash))

		fields := map[string]interface{}{
			"from": test.SignerAddress(t).Hex(),
			"data": "0x60606040",
		}

		res := test.PerformRPC(t, s, sendTransactionBody(t, `"d"`, fields))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		txs := submittedTransactions(t, node)
		require.Len(t, txs, 1)
		tx := txs[0]

		assert.Equal(t, uint64(7), tx.Nonce())
		assert.Equal(t, uint64(0x15f90), tx.Gas())
		assert.Equal(t, 0, tx.GasPrice().Sign())
		assert.Equal(t, 0, tx.Value().Sign())
		assert.Nil(t, tx.To())
		assert.Equal(t, hexutil.MustDecode("0x60606040"), tx.Data())
	})
}

func TestSendTransactionSequentialNonces(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.Result(txHash))

		for i := 0; i < 3; i++ {
			res := test.PerformRPC(t, s, sendTransactionBody(t, fmt.Sprint(i), valueTransfer(t)))
			require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		}

		txs := submittedTransactions(t, node)
		require.Len(t, txs, 3)
		for i, tx := range txs {
			assert.Equal(t, uint64(i), tx.Nonce())
		}
	})
}

func TestSendTransactionConcurrentNoncesAreDistinct(t *testing.T) {
	const n = 16

	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.Result(txHash))

		var wg sync.WaitGroup
		codes := make([]int, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res := test.PerformRPC(t, s, sendTransactionBody(t, fmt.Sprint(i), valueTransfer(t)))
				codes[i] = res.Code
			}(i)
		}
		wg.Wait()

		for _, code := range codes {
			assert.Equal(t, http.StatusOK, code)
		}

		seen := make(map[uint64]bool)
		for _, tx := range submittedTransactions(t, node) {
			assert.False(t, seen[tx.Nonce()], "nonce %d assigned twice", tx.Nonce())
			seen[tx.Nonce()] = true
		}
		assert.Len(t, seen, n)
		for i := uint64(0); i < n; i++ {
			assert.True(t, seen[i], "nonce %d missing", i)
		}
	})
}

func TestSendTransactionFromIsNotSigner(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		fields := valueTransfer(t)
		fields["from"] = "0x7577919ae5df4941180eac211965f275cdce314d"

		res := test.PerformRPC(t, s, sendTransactionBody(t, `9`, fields))

		parsed := test.RequireRPCError(t, res, http.StatusBadRequest, jsonrpc.CodeSigningFromIsNotAnUnlockedAccount)
		assert.JSONEq(t, `9`, string(parsed.ID))
		assert.Empty(t, node.Requests(pendingCount))
		assert.Empty(t, node.Requests(sendRaw))
	})
}

func TestSendTransactionFromIsCaseInsensitive(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.Result(txHash))

		fields := valueTransfer(t)
		fields["from"] = strings.ToLower(test.SignerAddress(t).Hex())

		res := test.PerformRPC(t, s, sendTransactionBody(t, `1`, fields))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	})
}

func TestSendTransactionInvalidParams(t *testing.T) {
	from := `"` + "0xfe3b557e8fb62b89f4916b721be55ceb828dbd73" + `"`

	tests := []struct {
		name   string
		params string
	}{
		{"no params", `null`},
		{"object instead of array", `{"from":` + from + `}`},
		{"empty array", `[]`},
		{"two transactions", `[{"from":` + from + `},{"from":` + from + `}]`},
		{"array element not an object", `["0x1"]`},
		{"missing from", `[{"to":"` + recipient + `"}]`},
		{"unknown field", `[{"from":` + from + `,"colour":"blue"}]`},
		{"decimal gas", `[{"from":` + from + `,"gas":21000}]`},
		{"gas without prefix", `[{"from":` + from + `,"gas":"5208"}]`},
		{"short address", `[{"from":"0x1234"}]`},
		{"malformed data", `[{"from":` + from + `,"data":"0xzz"}]`},
		{"data and input differ", `[{"from":` + from + `,"data":"0x01","input":"0x02"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
				body := `{"jsonrpc":"2.0","id":3,"method":"eth_sendTransaction","params":` + tt.params + `}`

				res := test.PerformRPC(t, s, body)

				parsed := test.RequireRPCError(t, res, http.StatusBadRequest, jsonrpc.CodeInvalidParams)
				assert.JSONEq(t, `3`, string(parsed.ID))
				assert.Empty(t, node.Requests(sendRaw))
			})
		})
	}
}

func TestSendTransactionInsufficientFunds(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.RPCError(-32004, "Upfront cost exceeds account balance"))

		res := test.PerformRPC(t, s, sendTransactionBody(t, `"funds"`, valueTransfer(t)))

		parsed := test.RequireRPCError(t, res, http.StatusBadRequest, jsonrpc.CodeTransactionUpfrontCostExceedsFunds)
		assert.JSONEq(t, `"funds"`, string(parsed.ID))
		assert.Len(t, node.Requests(sendRaw), 1)
	})
}

func TestSendTransactionRejectedNonceIsReused(t *testing.T) {
	tests := map[string]test.StubResponse{
		"insufficient funds": test.RPCError(-32004, "Upfront cost exceeds account balance"),
		"other node error":   test.RPCError(-32009, "Gas price below configured minimum gas price"),
	}

	for name, rejection := range tests {
		t.Run(name, func(t *testing.T) {
			test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
				node.Respond(pendingCount, test.Result(`"0x0"`))
				node.Respond(sendRaw, rejection, test.Result(txHash))

				res := test.PerformRPC(t, s, sendTransactionBody(t, `1`, valueTransfer(t)))
				require.Equal(t, http.StatusBadRequest, res.Code, res.Body.String())

				res = test.PerformRPC(t, s, sendTransactionBody(t, `2`, valueTransfer(t)))
				require.Equal(t, http.StatusOK, res.Code, res.Body.String())

				txs := submittedTransactions(t, node)
				require.Len(t, txs, 2)
				assert.Equal(t, uint64(0), txs[0].Nonce())
				assert.Equal(t, uint64(0), txs[1].Nonce())
			})
		})
	}
}

func TestSendTransactionTimeoutKeepsNonce(t *testing.T) {
	cfg := test.DefaultTestConfig()
	cfg.Downstream.Timeout = 100 * time.Millisecond

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.StubResponse{Result: []byte(txHash), Delay: time.Second}, test.Result(txHash))

		res := test.PerformRPC(t, s, sendTransactionBody(t, `1`, valueTransfer(t)))
		test.RequireRPCError(t, res, http.StatusGatewayTimeout, jsonrpc.CodeConnectionToDownstreamTimedOut)

		res = test.PerformRPC(t, s, sendTransactionBody(t, `2`, valueTransfer(t)))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		txs := submittedTransactions(t, node)
		require.Len(t, txs, 2)
		assert.Equal(t, uint64(0), txs[0].Nonce())
		assert.Equal(t, uint64(1), txs[1].Nonce())
	})
}

func TestSendTransactionCompressedNodeReply(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32004,"message":"Upfront cost exceeds account balance"}}`))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.StubResponse{
			Header: http.Header{"Content-Encoding": []string{"gzip"}},
			Body:   buf.Bytes(),
		})

		res := test.PerformRequest(t, s, http.MethodPost, "/", sendTransactionBody(t, `1`, valueTransfer(t)), http.Header{
			"Content-Type":    []string{"application/json"},
			"Accept-Encoding": []string{"gzip, deflate, br"},
		})

		test.RequireRPCError(t, res, http.StatusBadRequest, jsonrpc.CodeTransactionUpfrontCostExceedsFunds)
	})
}

func TestSendTransactionNonceTooLowRetriesOnce(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`), test.Result(`"0x5"`))
		node.Respond(sendRaw, test.RPCError(-32001, "Nonce too low"), test.Result(txHash))

		res := test.PerformRPC(t, s, sendTransactionBody(t, `12`, valueTransfer(t)))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		parsed := test.ParseRPCResponse(t, res)
		assert.JSONEq(t, `12`, string(parsed.ID))
		assert.JSONEq(t, txHash, string(parsed.Result))

		txs := submittedTransactions(t, node)
		require.Len(t, txs, 2)
		assert.Equal(t, uint64(0), txs[0].Nonce())
		assert.Equal(t, uint64(5), txs[1].Nonce())

		// the counter continues from the resynchronised nonce
		res = test.PerformRPC(t, s, sendTransactionBody(t, `13`, valueTransfer(t)))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		txs = submittedTransactions(t, node)
		require.Len(t, txs, 3)
		assert.Equal(t, uint64(6), txs[2].Nonce())
	})
}

func TestSendTransactionNonceTooLowTwice(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.RPCError(-32000, "nonce too low"))

		res := test.PerformRPC(t, s, sendTransactionBody(t, `13`, valueTransfer(t)))

		parsed := test.RequireRPCError(t, res, http.StatusBadRequest, jsonrpc.CodeNonceTooLow)
		assert.JSONEq(t, `13`, string(parsed.ID))
		assert.Len(t, node.Requests(sendRaw), 2)
	})
}

func TestSendTransactionExplicitNonceIsNotRetried(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(sendRaw, test.RPCError(-32001, "Nonce too low"))

		fields := valueTransfer(t)
		fields["nonce"] = "0x0"

		res := test.PerformRPC(t, s, sendTransactionBody(t, `14`, fields))

		test.RequireRPCError(t, res, http.StatusBadRequest, jsonrpc.CodeNonceTooLow)
		assert.Len(t, node.Requests(sendRaw), 1)
		assert.Empty(t, node.Requests(pendingCount))
	})
}

func TestSendTransactionKnownTransactionForwardsNodeError(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.RPCError(-32000, "Known transaction"))

		res := test.PerformRPC(t, s, sendTransactionBody(t, `15`, valueTransfer(t)))

		parsed := test.RequireRPCError(t, res, http.StatusBadRequest, -32000)
		assert.Equal(t, "Known transaction", parsed.Error.Message)
		assert.Len(t, node.Requests(sendRaw), 1)
	})
}

func TestSendTransactionOtherNodeErrorVerbatim(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.RPCError(-32009, "Gas price below configured minimum gas price"))

		res := test.PerformRPC(t, s, sendTransactionBody(t, `16`, valueTransfer(t)))

		parsed := test.RequireRPCError(t, res, http.StatusBadRequest, -32009)
		assert.Equal(t, "Gas price below configured minimum gas price", parsed.Error.Message)
	})
}

func TestSendTransactionDownstreamTimeout(t *testing.T) {
	cfg := test.DefaultTestConfig()
	cfg.Downstream.Timeout = 100 * time.Millisecond

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.Result(`"0x0"`))
		node.Respond(sendRaw, test.StubResponse{Result: []byte(txHash), Delay: time.Second})

		res := test.PerformRPC(t, s, sendTransactionBody(t, `17`, valueTransfer(t)))

		parsed := test.RequireRPCError(t, res, http.StatusGatewayTimeout, jsonrpc.CodeConnectionToDownstreamTimedOut)
		assert.JSONEq(t, `17`, string(parsed.ID))
	})
}

func TestSendTransactionNonceQueryTimeout(t *testing.T) {
	cfg := test.DefaultTestConfig()
	cfg.Downstream.Timeout = 100 * time.Millisecond

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server, node *test.StubNode) {
		node.Respond(pendingCount, test.StubResponse{Result: []byte(`"0x0"`), Delay: time.Second})

		res := test.PerformRPC(t, s, sendTransactionBody(t, `18`, valueTransfer(t)))

		test.RequireRPCError(t, res, http.StatusGatewayTimeout, jsonrpc.CodeConnectionToDownstreamTimedOut)
		assert.Empty(t, node.Requests(sendRaw))
	})
}

const (
	enclaveA = "A1aVtMxLCUHmBVHXoZzzBgPbW/wj5axDpW9X8l91SGo="
	enclaveB = "Ko2bVqD+nNlNYL5EE7y3IdOnviftjiizpjRt+HTuFBs="
)

func eeaBody(t *testing.T, fields map[string]interface{}) string {
	t.Helper()

	params, err := json.Marshal([]interface{}{fields})
	require.NoError(t, err)

	return fmt.Sprintf(`{"jsonrpc":"2.0","id":21,"method":"eea_sendTransaction","params":%s}`, params)
}

func privateTransfer(t *testing.T) map[string]interface{} {
	t.Helper()

	return map[string]interface{}{
		"from":        test.SignerAddress(t).Hex(),
		"to":          recipient,
		"gas":         "0x76c0",
		"gasPrice":    "0x0",
		"data":        "0x0102",
		"privateFrom": enclaveA,
		"restriction": "restricted",
	}
}

func TestEeaSendTransactionPrivacyGroup(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond("priv_getTransactionCount", test.Result(`"0x3"`))
		node.Respond("eea_sendRawTransaction", test.Result(txHash))

		fields := privateTransfer(t)
		fields["privacyGroupId"] = enclaveB

		res := test.PerformRPC(t, s, eeaBody(t, fields))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		queries := node.Requests("priv_getTransactionCount")
		require.Len(t, queries, 1)
		assert.Contains(t, string(queries[0].RPC.Params), enclaveB)

		raws := node.Requests("eea_sendRawTransaction")
		require.Len(t, raws, 1)
		assert.JSONEq(t, `21`, string(raws[0].RPC.ID))

		var params []string
		require.NoError(t, json.Unmarshal(raws[0].RPC.Params, &params))

		var fieldsOut []rlp.RawValue
		require.NoError(t, rlp.DecodeBytes(hexutil.MustDecode(params[0]), &fieldsOut))
		require.Len(t, fieldsOut, 12)

		var nonce uint64
		require.NoError(t, rlp.DecodeBytes(fieldsOut[0], &nonce))
		assert.Equal(t, uint64(3), nonce)

		var restriction []byte
		require.NoError(t, rlp.DecodeBytes(fieldsOut[11], &restriction))
		assert.Equal(t, "restricted", string(restriction))
	})
}

func TestEeaSendTransactionPrivateFor(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond("priv_getEeaTransactionCount", test.Result(`"0x1"`))
		node.Respond("eea_sendRawTransaction", test.Result(txHash))

		fields := privateTransfer(t)
		fields["privateFor"] = []string{enclaveB}

		res := test.PerformRPC(t, s, eeaBody(t, fields))
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		require.Len(t, node.Requests("priv_getEeaTransactionCount"), 1)
		require.Len(t, node.Requests("eea_sendRawTransaction"), 1)
		assert.Empty(t, node.Requests(pendingCount))
	})
}

func TestEeaSendTransactionInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"neither privateFor nor privacyGroupId", func(map[string]interface{}) {}},
		{"both privateFor and privacyGroupId", func(f map[string]interface{}) {
			f["privateFor"] = []string{enclaveB}
			f["privacyGroupId"] = enclaveB
		}},
		{"empty privateFor", func(f map[string]interface{}) {
			f["privateFor"] = []string{}
		}},
		{"unrestricted", func(f map[string]interface{}) {
			f["privacyGroupId"] = enclaveB
			f["restriction"] = "unrestricted"
		}},
		{"missing restriction", func(f map[string]interface{}) {
			f["privacyGroupId"] = enclaveB
			delete(f, "restriction")
		}},
		{"missing privateFrom", func(f map[string]interface{}) {
			f["privacyGroupId"] = enclaveB
			delete(f, "privateFrom")
		}},
		{"privateFrom not base64", func(f map[string]interface{}) {
			f["privacyGroupId"] = enclaveB
			f["privateFrom"] = "not base64!"
		}},
		{"privateFor wrong length", func(f map[string]interface{}) {
			f["privateFor"] = []string{"AQID"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
				fields := privateTransfer(t)
				tt.mutate(fields)

				res := test.PerformRPC(t, s, eeaBody(t, fields))

				test.RequireRPCError(t, res, http.StatusBadRequest, jsonrpc.CodeInvalidParams)
				assert.Empty(t, node.Requests("eea_sendRawTransaction"))
			})
		})
	}
}
