package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRuntime struct {
	body    []byte
	err     error
	request map[string]interface{}
	modelID string
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.modelID = *params.ModelId
	if err := json.Unmarshal(params.Body, &f.request); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

var profiles = []core.VendorProfile{{Code: "safilo", Active: true}, {Code: "marchon", Active: true}}

func newTestAdvisor(client InvokeModelAPI, modelID string) *Advisor {
	return NewAdvisor(client, modelID, 300, 0.1, 0.9, 64, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))
}

func TestAdvisor_Claude(t *testing.T) {
	runtime := &fakeRuntime{
		body: []byte(`{"content":[{"type":"text","text":"{\"vendor_code\":\"safilo\",\"confidence\":0.9,\"explanation\":\"BRAND markers\"}"}]}`),
	}
	advisor := newTestAdvisor(runtime, "anthropic.claude-3-haiku-20240307-v1:0")

	suggestion, err := advisor.SuggestVendor(context.Background(), &core.Email{
		From:      "buyer@gmail.com",
		Subject:   "Fwd: Order Confirmation",
		PlainText: "BRAND: CARRERA MODEL: 1234",
	}, profiles)
	require.NoError(t, err)

	assert.Equal(t, "safilo", suggestion.VendorCode)
	assert.InDelta(t, 0.9, suggestion.Confidence, 0.0001)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", suggestion.ModelUsed)
	assert.Equal(t, "bedrock-2023-05-31", runtime.request["anthropic_version"])
	assert.Contains(t, runtime.request, "messages")
}

func TestAdvisor_Titan(t *testing.T) {
	runtime := &fakeRuntime{
		body: []byte(`{"results":[{"outputText":"{\"vendor_code\":\"marchon\",\"confidence\":0.4}"}]}`),
	}
	advisor := newTestAdvisor(runtime, "amazon.titan-text-express-v1")

	suggestion, err := advisor.SuggestVendor(context.Background(), &core.Email{PlainText: "Style: FLEXON"}, profiles)
	require.NoError(t, err)
	assert.Equal(t, "marchon", suggestion.VendorCode)
	assert.Contains(t, runtime.request, "inputText")
}

func TestAdvisor_EmptyTitanResults(t *testing.T) {
	advisor := newTestAdvisor(&fakeRuntime{body: []byte(`{"results":[]}`)}, "amazon.titan-text-express-v1")

	_, err := advisor.SuggestVendor(context.Background(), &core.Email{}, profiles)
	assert.Error(t, err)
}

func TestAdvisor_InvokeError(t *testing.T) {
	advisor := newTestAdvisor(&fakeRuntime{err: errors.New("throttled")}, "meta.llama3-8b-instruct-v1:0")

	_, err := advisor.SuggestVendor(context.Background(), &core.Email{}, profiles)
	assert.ErrorContains(t, err, "throttled")
}
