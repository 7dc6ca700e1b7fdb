package accountcsv

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acctconsole/internal/api"
	"acctconsole/internal/fakeapi"
)

func TestParse(t *testing.T) {
	input := `Phone_Number, api_id ,api_hash,session_string
+100,111,hash-a,sess-a
,222,hash-b,
+300,abc,hash-c,
+100,444,hash-d,
,,,
+500,555
`
	rows, errs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, api.CreateAccountRequest{PhoneNumber: "+100", APIID: 111, APIHash: "hash-a", SessionString: "sess-a"}, rows[0].Request)
	assert.Equal(t, "+500", rows[1].Request.PhoneNumber)
	assert.Equal(t, 555, rows[1].Request.APIID)
	assert.Empty(t, rows[1].Request.APIHash)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "row 3: phone_number required")
	assert.Contains(t, errs[1], "row 4: api_id must be an integer")
	assert.Contains(t, errs[2], "duplicate phone '+100'")
}

func TestParseMissingColumn(t *testing.T) {
	_, _, err := Parse(strings.NewReader("phone_number,api_hash\n+1,x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_id")

	_, _, err = Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestImportAgainstAPI(t *testing.T) {
	fake := fakeapi.New()
	server := fake.Serve()
	defer server.Close()
	client := api.NewClient(server.URL)

	input := "phone_number,api_id,api_hash\n+1,10,h1\n+2,x,h2\n+3,30,h3\n"
	result, err := Import(context.Background(), client, strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.AccountIDs, 2)
	require.Len(t, result.Errors, 1)

	posts := fake.RequestsTo(http.MethodPost, "/accounts")
	require.Len(t, posts, 2)
	var body map[string]any
	require.NoError(t, json.Unmarshal(posts[1].Body, &body))
	assert.Equal(t, "+3", body["phone_number"])
	assert.Equal(t, float64(30), body["api_id"])
}

func TestImportRecordsAPIFailures(t *testing.T) {
	fake := fakeapi.New()
	fake.Fail(http.MethodPost, "/accounts", http.StatusBadRequest, `{"detail":"Account already exists"}`)
	server := fake.Serve()
	defer server.Close()

	result, err := Import(context.Background(), api.NewClient(server.URL), strings.NewReader("phone_number,api_id\n+1,1\n"))
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "row 2: Account already exists", result.Errors[0])
}
