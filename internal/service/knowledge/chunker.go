// Package knowledge 知识库的分块、索引、检索与文档管理
package knowledge

import (
	"regexp"
	"strings"
)

// 分块参数
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// 句子边界，按优先级依次尝试
var sentenceBoundaries = []string{". ", "? ", "! ", "\n"}

// ChunkText 将文本切分为带重叠的块
// 空白归一化后，短文本原样返回一块；长文本按窗口切分并尽量在句子边界断开
func ChunkText(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end < len(text) {
			for _, boundary := range sentenceBoundaries {
				idx := strings.LastIndex(text[start:end], boundary)
				if idx > 0 {
					end = start + idx + 1
					break
				}
			}
		} else {
			end = len(text)
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}
		// 重叠回退不能把起点推回原处，否则卡死
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
