package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/typedcsv/internal/schema"
)

const customersCSV = "Account_ID_CaseSafe,Account_Name,Last_Activity,Type\n" +
	"001A,Acme,2024-01-15,Customer\n" +
	"001B,Globex,someday,\n"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestSchemasCmd(t *testing.T) {
	out, err := run(t, "", "schemas")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "sfdc_customers")
	assert.Contains(t, out, "anrok_transactions")
}

func TestSchemasCmd_JSON(t *testing.T) {
	out, err := run(t, "", "schemas", "--json")
	require.NoError(t, err)

	var infos []schema.Info
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Len(t, infos, schema.Count())
}

func TestCheckCmd_Valid(t *testing.T) {
	path := writeFile(t, "customers.csv", []byte(customersCSV[:strings.LastIndex(customersCSV, "001B")]))

	out, err := run(t, "", "check", "sfdc_customers", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sfdc_customers: 1 rows, 1 valid, 0 invalid, 0 excluded")
}

func TestCheckCmd_InvalidRows(t *testing.T) {
	path := writeFile(t, "customers.csv", []byte(customersCSV))

	out, err := run(t, "", "check", "sfdc_customers", path)
	assert.ErrorIs(t, err, errInvalidRows)
	assert.Contains(t, out, "2 rows, 1 valid, 1 invalid")
	assert.Contains(t, out, "line 3:")
	assert.Contains(t, out, "someday")
}

func TestCheckCmd_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(customersCSV))
	require.NoError(t, zw.Close())
	path := writeFile(t, "customers.csv.gz", buf.Bytes())

	out, err := run(t, "", "check", "sfdc_customers", path)
	assert.ErrorIs(t, err, errInvalidRows)
	assert.Contains(t, out, "2 rows")
}

func TestCheckCmd_StdinWithSeparator(t *testing.T) {
	input := strings.ReplaceAll(customersCSV, ",", ";")

	out, err := run(t, input, "check", "--separator", ";", "--all", "sfdc_customers", "-")
	assert.ErrorIs(t, err, errInvalidRows)
	assert.Contains(t, out, "line 2: ok")
	assert.Contains(t, out, "line 3:")
}

func TestCheckCmd_JSON(t *testing.T) {
	path := writeFile(t, "customers.csv", []byte(customersCSV))

	out, err := run(t, "", "check", "--json", "sfdc_customers", path)
	assert.ErrorIs(t, err, errInvalidRows)

	var rep struct {
		Schema  string `json:"schema"`
		Total   int    `json:"total"`
		Invalid int    `json:"invalid"`
		Rows    []struct {
			Line int `json:"line"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "sfdc_customers", rep.Schema)
	assert.Equal(t, 2, rep.Total)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, 3, rep.Rows[0].Line)
}

func TestCheckCmd_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(customersCSV))
	}))
	defer srv.Close()

	out, err := run(t, "", "check", "sfdc_customers", srv.URL+"/export.csv")
	assert.ErrorIs(t, err, errInvalidRows)
	assert.Contains(t, out, "2 rows")
}

func TestCheckCmd_Errors(t *testing.T) {
	path := writeFile(t, "customers.csv", []byte(customersCSV))

	_, err := run(t, "", "check", "nope", path)
	assert.ErrorIs(t, err, schema.ErrUnknownSchema)

	_, err = run(t, "", "check", "--separator", "ab", "sfdc_customers", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid csv options")

	_, err = run(t, "", "check", "sfdc_customers", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "", "check", "sfdc_customers")
	assert.Error(t, err, "check needs two arguments")
}
