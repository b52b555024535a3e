package upload

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/lokingai/types"
)

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/svg+xml"}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(imageTypes, 5)

	tests := []struct {
		name        string
		contentType string
		size        int64
		wantCode    types.ErrorCode
	}{
		{name: "allowed small", contentType: "image/png", size: 1024},
		{name: "exactly at ceiling", contentType: "image/jpeg", size: 5 * bytesPerMB},
		{name: "one byte over", contentType: "image/jpeg", size: 5*bytesPerMB + 1, wantCode: types.ErrFileTooLarge},
		{name: "disallowed type", contentType: "text/plain", size: 10, wantCode: types.ErrInvalidFileType},
		{name: "empty type", contentType: "", size: 10, wantCode: types.ErrInvalidFileType},
		{name: "type checked first", contentType: "application/pdf", size: 100 * bytesPerMB, wantCode: types.ErrInvalidFileType},
		{name: "params and case ignored", contentType: "Image/PNG; charset=binary", size: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.contentType, tt.size)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, types.IsErrorCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestValidator_MaxBytes(t *testing.T) {
	assert.Equal(t, int64(5*bytesPerMB), NewValidator(imageTypes, 5).MaxBytes())
}

// 不在白名单中的类型无论大小都应返回 invalid-file-type
func TestProperty_Validator_DisallowedTypeAlwaysRejectedFirst(t *testing.T) {
	v := NewValidator(imageTypes, 5)

	rapid.Check(t, func(rt *rapid.T) {
		sub := rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "subtype")
		ct := fmt.Sprintf("application/x-%s", sub)
		size := rapid.Int64Range(0, 50*bytesPerMB).Draw(rt, "size")

		err := v.Validate(ct, size)
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidFileType))
	})
}

// 允许的类型仅在超过上限时被拒绝
func TestProperty_Validator_SizeCeiling(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxMB := rapid.IntRange(1, 64).Draw(rt, "maxMB")
		ct := rapid.SampledFrom(imageTypes).Draw(rt, "contentType")
		size := rapid.Int64Range(0, int64(maxMB+2)*bytesPerMB).Draw(rt, "size")

		v := NewValidator(imageTypes, maxMB)
		err := v.Validate(ct, size)

		if size > int64(maxMB)*bytesPerMB {
			assert.True(t, types.IsErrorCode(err, types.ErrFileTooLarge))
		} else {
			assert.NoError(t, err)
		}
	})
}

func TestProperty_RequireText(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("non-empty text is accepted", prop.ForAll(
		func(s string) bool {
			return RequireText(&s) == nil
		},
		gen.AnyString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}

func TestRequireText_MissingAndEmpty(t *testing.T) {
	empty := ""
	assert.True(t, types.IsErrorCode(RequireText(nil), types.ErrEmptyTextField))
	assert.True(t, types.IsErrorCode(RequireText(&empty), types.ErrEmptyTextField))

	ws := "   "
	assert.NoError(t, RequireText(&ws))
}
