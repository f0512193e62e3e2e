package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	key := ObjectKey(at, `C:\exports\march payments.csv`)
	assert.True(t, strings.HasPrefix(key, "imports/2024/03/05/"), key)
	assert.True(t, strings.HasSuffix(key, "-march payments.csv"), key)

	assert.True(t, strings.HasSuffix(ObjectKey(at, ""), "-import.csv"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("a.CSV"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentType("book.xlsx"))
	assert.Equal(t, "text/plain", contentType("paste.txt"))
}
