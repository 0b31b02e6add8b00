package upstream

import (
	"fmt"

	"github.com/shogo82148/go-sfv"
)

// SourcesHeader carries the source URLs of a request to an upstream server,
// encoded as a structured field list of strings.
const SourcesHeader = "X-Source-Urls"

// EncodeSources encodes urls for SourcesHeader.
func EncodeSources(urls []string) (string, error) {
	list := make(sfv.List, len(urls))
	for i, u := range urls {
		list[i] = sfv.Item{Value: u}
	}
	val, err := sfv.EncodeList(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", SourcesHeader, err)
	}
	return val, nil
}

// DecodeSources parses the values of SourcesHeader. Members that are not
// strings are skipped.
func DecodeSources(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	list, err := sfv.DecodeList(values)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", SourcesHeader, err)
	}
	urls := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.Value.(string); ok {
			urls = append(urls, s)
		}
	}
	return urls, nil
}
