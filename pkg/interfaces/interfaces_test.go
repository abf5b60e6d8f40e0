/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces_test.go
Description: Tests for the response model. Verifies the lowercased body
rendering used by the fitness scoring keyword scans.
*/

package interfaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyStringLowercases(t *testing.T) {
	resp := &ResponseInfo{
		Data: map[string]interface{}{"error": "SQL Syntax Error"},
	}
	assert.Contains(t, resp.BodyString(), "sql syntax error")
}

func TestBodyStringEmptyCases(t *testing.T) {
	var nilResp *ResponseInfo
	assert.Empty(t, nilResp.BodyString())
	assert.Empty(t, (&ResponseInfo{}).BodyString())
	assert.Empty(t, (&ResponseInfo{Data: map[string]interface{}{}}).BodyString())
}
