// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"strings"

	"github.com/tidwall/gjson"
)

// FlattenDoc extracts plain text from a rich-text document field, such as a
// webhook issue description. Plain strings pass through unchanged.
func FlattenDoc(raw []byte) string {
	return flattenValue(gjson.ParseBytes(raw))
}

func flattenValue(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.String()
	case v.IsObject():
		var sb strings.Builder
		v.Get("content").ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").String() == "paragraph" {
				block.Get("content").ForEach(func(_, item gjson.Result) bool {
					if item.Get("type").String() == "text" {
						sb.WriteString(item.Get("text").String())
					}
					return true
				})
			}
			return true
		})
		return sb.String()
	default:
		return v.String()
	}
}

// WrapDoc wraps plain text in the document shape that comment endpoints
// expect.
func WrapDoc(text string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": []interface{}{
			map[string]interface{}{
				"type": "paragraph",
				"content": []interface{}{
					map[string]interface{}{
						"type": "text",
						"text": text,
					},
				},
			},
		},
	}
}
