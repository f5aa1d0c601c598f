package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/salespulse/internal/config"
)

func TestFilterSalesFiles(t *testing.T) {
	got := filterSalesFiles([]string{
		"weekly_sales.csv",
		"Q3_Export.XLSX",
		"/drop/outbound/older.csv",
		"readme.txt",
		"archive.zip",
		".",
	})
	assert.Equal(t, []string{"weekly_sales.csv", "Q3_Export.XLSX", "older.csv"}, got)
}

func TestNewFTPDrop_Defaults(t *testing.T) {
	d := NewFTPDrop(config.FTPConfig{Addr: "drop.example.com", Dir: "/outbound"})
	assert.Equal(t, "drop.example.com:21", d.addr)
	assert.Equal(t, "anonymous", d.user)
	assert.Equal(t, 30*time.Second, d.timeout)
}

func TestNewFTPDrop_ExplicitSettings(t *testing.T) {
	d := NewFTPDrop(config.FTPConfig{
		Addr:        "drop.example.com:2121",
		User:        "sells",
		Password:    "secret",
		Dir:         "/outbound",
		TimeoutSecs: 5,
	})
	assert.Equal(t, "drop.example.com:2121", d.addr)
	assert.Equal(t, "sells", d.user)
	assert.Equal(t, 5*time.Second, d.timeout)
}
