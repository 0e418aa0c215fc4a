package validators

import (
	"net/http"
	"strings"
	"testing"

	"github.com/anonto42/follow-graph/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.FollowRequest{Username: "bob"}))

	for _, req := range []*models.FollowRequest{
		{Username: ""},
		{Username: strings.Repeat("x", 31)},
	} {
		err := v.Validate(req)
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	}
}
