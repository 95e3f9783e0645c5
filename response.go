package dummyauth

import (
	"encoding/json"
	"mime"
	"net/url"
)

type bodyKind int

const (
	jsonBody bodyKind = iota
	formBody
	unsupportedBody
)

// body is a decoded authorization endpoint response. Only string values are
// kept, for form encoded bodies the first value for each key.
type body struct {
	kind      bodyKind
	mediaType string
	values    map[string]string
}

func (b body) get(key string) (string, bool) {
	v, ok := b.values[key]
	return v, ok
}

func kindOf(contentType string) (bodyKind, string) {
	mediatype, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return unsupportedBody, contentType
	}

	switch mediatype {
	case "application/json":
		return jsonBody, mediatype
	case "application/x-www-form-urlencoded":
		return formBody, mediatype
	default:
		return unsupportedBody, mediatype
	}
}

func decodeBody(statusCode int, contentType string, data []byte) (body, error) {
	kind, mediatype := kindOf(contentType)
	b := body{kind: kind, mediaType: mediatype, values: map[string]string{}}

	switch kind {
	case jsonBody:
		var v map[string]interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return b, &ResponseError{StatusCode: statusCode, MediaType: mediatype, Body: data, Err: err}
		}

		for key, value := range v {
			if s, ok := value.(string); ok {
				b.values[key] = s
			}
		}

	case formBody:
		form, err := url.ParseQuery(string(data))
		if err != nil {
			return b, &ResponseError{StatusCode: statusCode, MediaType: mediatype, Body: data, Err: err}
		}

		for key, values := range form {
			if len(values) > 0 {
				b.values[key] = values[0]
			}
		}

	default:
		return b, &UnsupportedContentTypeError{ContentType: contentType}
	}

	return b, nil
}
