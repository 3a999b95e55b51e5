package handlers

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/buger/jsonparser"
	"github.com/gin-gonic/gin"

	"github.com/yaw/dbproxy/internal/dbproxy/apierror"
	"github.com/yaw/dbproxy/internal/dbproxy/coercion"
	"github.com/yaw/dbproxy/internal/dbproxy/dispatcher"
	"github.com/yaw/dbproxy/internal/dbproxy/jsonx"
)

const (
	fieldOperation      = "operation"
	fieldStatementID    = "statement_id"
	fieldQueryData      = "query_data"
	fieldStatement      = "statement"
	fieldPerPageResults = "per_page_results"
	fieldPaging         = "paging"
)

// readBody reads at most payloadMaxSize bytes and checks that they form one JSON document.
func (h *Handler) readBody(c *gin.Context) ([]byte, error) {
	limit := h.payloadMaxSize
	if limit > 0 && c.Request.ContentLength > limit {
		return nil, apierror.PayloadTooLarge(fmt.Sprintf("request body of %d bytes exceeds %d bytes", c.Request.ContentLength, limit))
	}

	reader := c.Request.Body
	if limit > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apierror.PayloadTooLarge(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		return nil, apierror.BadRequest(apierror.KindInvalidJSON, fmt.Sprintf("failed to read request body: %v", err))
	}

	if !jsonx.Valid(body) {
		return nil, apierror.BadRequest(apierror.KindInvalidJSON, "request body is not a valid JSON document")
	}
	return body, nil
}

// operations returns the raw objects of the operation array.
func operations(body []byte) ([][]byte, error) {
	value, dataType, _, err := jsonparser.Get(body, fieldOperation)
	if err != nil || dataType == jsonparser.NotExist {
		return nil, apierror.BadRequest(apierror.KindNoOperation, "request has no operation field")
	}
	if dataType != jsonparser.Array {
		return nil, apierror.BadRequest(apierror.KindOperationNotArray,
			fmt.Sprintf("operation is a %s, expected an array", dataType))
	}

	var (
		items   [][]byte
		itemErr error
	)
	_, err = jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, _ error) {
		if itemErr != nil {
			return
		}
		if itemType != jsonparser.Object {
			itemErr = apierror.BadRequest(apierror.KindOperationItemNotObject,
				fmt.Sprintf("operation item %d is a %s, expected an object", len(items), itemType))
			return
		}
		items = append(items, item)
	})
	if itemErr != nil {
		return nil, itemErr
	}
	if err != nil {
		return nil, apierror.BadRequest(apierror.KindOperationNotArray, err.Error())
	}
	return items, nil
}

// requiredField pairs a key with the tag reported when it is absent.
type requiredField struct {
	key  string
	kind string
}

// Presence is checked for every field, in this order, before any type is checked.
var (
	registeredFields = []requiredField{
		{fieldQueryData, apierror.KindNoQueryData},
		{fieldStatementID, apierror.KindNoStatementID},
		{fieldPaging, apierror.KindNoPaging},
	}
	// A missing statement shares the query_data tag.
	directFields = []requiredField{
		{fieldStatement, apierror.KindNoQueryData},
		{fieldPerPageResults, apierror.KindNoPerPageResults},
		{fieldPaging, apierror.KindNoPaging},
		{fieldStatementID, apierror.KindNoStatementID},
	}
)

func requireFields(item []byte, index int, fields []requiredField) error {
	for _, f := range fields {
		if _, _, ok := lookup(item, f.key); !ok {
			return missing(f.kind, index, f.key)
		}
	}
	return nil
}

// parseRegisteredBatch validates every item of an execute_statement body.
func parseRegisteredBatch(body []byte) ([]dispatcher.RegisteredItem, error) {
	raw, err := operations(body)
	if err != nil {
		return nil, err
	}

	items := make([]dispatcher.RegisteredItem, 0, len(raw))
	for i, item := range raw {
		if err := requireFields(item, i, registeredFields); err != nil {
			return nil, err
		}
		queryData, err := queryDataField(item, i)
		if err != nil {
			return nil, err
		}
		statementID, err := stringField(item, i, fieldStatementID, apierror.KindNoStatementID, apierror.KindStatementIDNotString)
		if err != nil {
			return nil, err
		}
		pagingToken, err := stringField(item, i, fieldPaging, apierror.KindNoPaging, apierror.KindPagingNotString)
		if err != nil {
			return nil, err
		}
		items = append(items, dispatcher.RegisteredItem{
			StatementID: statementID,
			QueryData:   queryData,
			Paging:      pagingToken,
		})
	}
	return items, nil
}

// parseDirectBatch validates every item of a direct_statement body.
func parseDirectBatch(body []byte) ([]dispatcher.DirectItem, error) {
	raw, err := operations(body)
	if err != nil {
		return nil, err
	}

	items := make([]dispatcher.DirectItem, 0, len(raw))
	for i, item := range raw {
		if err := requireFields(item, i, directFields); err != nil {
			return nil, err
		}
		statement, err := stringField(item, i, fieldStatement, apierror.KindNoQueryData, apierror.KindStatementNotString)
		if err != nil {
			return nil, err
		}
		statementID, err := stringField(item, i, fieldStatementID, apierror.KindNoStatementID, apierror.KindStatementIDNotString)
		if err != nil {
			return nil, err
		}
		perPage, err := perPageResultsField(item, i)
		if err != nil {
			return nil, err
		}
		pagingToken, err := stringField(item, i, fieldPaging, apierror.KindNoPaging, apierror.KindPagingNotString)
		if err != nil {
			return nil, err
		}
		items = append(items, dispatcher.DirectItem{
			StatementID:    statementID,
			Statement:      statement,
			PerPageResults: perPage,
			Paging:         pagingToken,
		})
	}
	return items, nil
}

func lookup(item []byte, key string) ([]byte, jsonparser.ValueType, bool) {
	value, dataType, _, err := jsonparser.Get(item, key)
	if err != nil || dataType == jsonparser.NotExist {
		return nil, jsonparser.NotExist, false
	}
	return value, dataType, true
}

func missing(kind string, index int, key string) error {
	return apierror.BadRequest(kind, fmt.Sprintf("operation item %d has no %s", index, key))
}

func wrongType(kind string, index int, key string, got jsonparser.ValueType) error {
	return apierror.BadRequest(kind, fmt.Sprintf("operation item %d: %s is a %s", index, key, got))
}

func stringField(item []byte, index int, key, missingKind, typeKind string) (string, error) {
	value, dataType, ok := lookup(item, key)
	if !ok {
		return "", missing(missingKind, index, key)
	}
	if dataType != jsonparser.String {
		return "", wrongType(typeKind, index, key, dataType)
	}
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return "", apierror.BadRequest(typeKind, fmt.Sprintf("operation item %d: %s: %v", index, key, err))
	}
	return s, nil
}

func queryDataField(item []byte, index int) ([]coercion.Param, error) {
	value, dataType, ok := lookup(item, fieldQueryData)
	if !ok {
		return nil, missing(apierror.KindNoQueryData, index, fieldQueryData)
	}
	if dataType != jsonparser.Array {
		return nil, wrongType(apierror.KindQueryDataNotArray, index, fieldQueryData, dataType)
	}

	params := make([]coercion.Param, 0)
	_, err := jsonparser.ArrayEach(value, func(raw []byte, rawType jsonparser.ValueType, _ int, _ error) {
		params = append(params, coercion.Param{Raw: raw, Type: rawType})
	})
	if err != nil {
		return nil, apierror.BadRequest(apierror.KindQueryDataNotArray, fmt.Sprintf("operation item %d: %v", index, err))
	}
	return params, nil
}

// perPageResultsField accepts a non-negative integer that fits a CQL page size.
func perPageResultsField(item []byte, index int) (int, error) {
	value, dataType, ok := lookup(item, fieldPerPageResults)
	if !ok {
		return 0, missing(apierror.KindNoPerPageResults, index, fieldPerPageResults)
	}
	if dataType != jsonparser.Number {
		return 0, wrongType(apierror.KindPerPageResultsNotNumber, index, fieldPerPageResults, dataType)
	}
	n, err := jsonparser.ParseInt(value)
	if err != nil || n < 0 || n > math.MaxInt32 {
		return 0, apierror.BadRequest(apierror.KindPerPageResultsNotNumber,
			fmt.Sprintf("operation item %d: per_page_results must be an integer between 0 and %d, got %s", index, math.MaxInt32, value))
	}
	return int(n), nil
}
