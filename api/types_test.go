package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_SuccessShape(t *testing.T) {
	data, err := json.Marshal(NewResponse(Descriptor{App: "text"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":null,"data":{"app":"text"}}`, string(data))
}

func TestResponse_ErrorShape(t *testing.T) {
	data, err := json.Marshal(NewErrorResponse("no-file-sent", "no file sent"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"no-file-sent","data":null,"detail":"no file sent"}`, string(data))
}

func TestListResponse_NilBecomesEmptyArray(t *testing.T) {
	data, err := json.Marshal(NewListResponse[Classification](nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":null,"data":[]}`, string(data))
}

func TestTextRequest_DistinguishesNullFromEmpty(t *testing.T) {
	var missing, empty TextRequest
	require.NoError(t, json.Unmarshal([]byte(`{"text":null}`), &missing))
	require.NoError(t, json.Unmarshal([]byte(`{"text":""}`), &empty))

	assert.Nil(t, missing.Text)
	require.NotNil(t, empty.Text)
	assert.Equal(t, "", *empty.Text)
}
