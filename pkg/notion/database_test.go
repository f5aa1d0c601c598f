package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient returns canned query responses in order and records requests.
type fakeClient struct {
	responses []*notionapi.DatabaseQueryResponse
	queries   []*notionapi.DatabaseQueryRequest
	created   []*notionapi.PageCreateRequest
	updated   []string
}

func (f *fakeClient) QueryDatabase(_ context.Context, _ string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.queries = append(f.queries, req)
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeClient) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.created = append(f.created, req)
	return &notionapi.Page{}, nil
}

func (f *fakeClient) UpdatePage(_ context.Context, pageID string, _ *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.updated = append(f.updated, pageID)
	return &notionapi.Page{}, nil
}

func TestQueryAll_Paginates(t *testing.T) {
	c := &fakeClient{responses: []*notionapi.DatabaseQueryResponse{
		{Results: []notionapi.Page{{ID: "p1"}, {ID: "p2"}}, HasMore: true, NextCursor: "cur-2"},
		{Results: []notionapi.Page{{ID: "p3"}}},
	}}

	pages, err := QueryAll(context.Background(), c, "db", nil)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, notionapi.ObjectID("p3"), pages[2].ID)

	require.Len(t, c.queries, 2)
	assert.Equal(t, notionapi.Cursor("cur-2"), c.queries[1].StartCursor)
}

func TestFindPageByCode(t *testing.T) {
	c := &fakeClient{responses: []*notionapi.DatabaseQueryResponse{
		{Results: []notionapi.Page{{ID: "existing"}}},
	}}

	page, err := FindPageByCode(context.Background(), c, "db", "C1000_01")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, notionapi.ObjectID("existing"), page.ID)

	require.Len(t, c.queries, 1)
	filter, ok := c.queries[0].Filter.(notionapi.PropertyFilter)
	require.True(t, ok)
	assert.Equal(t, "Account Code", filter.Property)
	assert.Equal(t, "C1000_01", filter.RichText.Equals)
}

func TestFindPageByCode_NotFound(t *testing.T) {
	c := &fakeClient{responses: []*notionapi.DatabaseQueryResponse{{}}}

	page, err := FindPageByCode(context.Background(), c, "db", "C9999")
	require.NoError(t, err)
	assert.Nil(t, page)
}
