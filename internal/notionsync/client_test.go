package notionsync

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestNotionClient_ErrorsNameTheOperation(t *testing.T) {
	n := &NotionClient{
		client: notionapi.NewClient("token", notionapi.WithHTTPClient(&http.Client{Transport: failingTransport{}})),
	}
	ctx := context.Background()

	_, err := n.CreatePage(ctx, "db", notionapi.Properties{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "CreatePage: "), err.Error())

	_, err = n.UpdatePage(ctx, "page", notionapi.Properties{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "UpdatePage: "), err.Error())

	_, err = n.QueryDatabase(ctx, "db", &notionapi.DatabaseQueryRequest{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "QueryDatabase: "), err.Error())

	err = n.DeletePage(ctx, "page")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "DeletePage: "), err.Error())
}
