// Package bmm parses Xilinx block memory map (.bmm) files, the layout
// descriptions data2mem uses to place a program image into a bitstream.
package bmm

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
)

// Parser represents a BMM file parser
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new BMM parser instance
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(BMMLexer),
		participle.Elide("Comment", "BlockComment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses a BMM file from a reader
func (p *Parser) Parse(r io.Reader) (*File, error) {
	f, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return f, nil
}

// ParseString parses a BMM file from a string
func (p *Parser) ParseString(input string) (*File, error) {
	f, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return f, nil
}

// ParseFile parses a BMM file from a file path
func (p *Parser) ParseFile(filename string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

var defaultParser = sync.OnceValues(NewParser)

// ParseFile parses filename with a shared parser.
func ParseFile(filename string) (*File, error) {
	p, err := defaultParser()
	if err != nil {
		return nil, err
	}
	return p.ParseFile(filename)
}

// SuggestedFor returns the memory map Xilinx tools emit next to a
// bitstream: top.bit pairs with top_bd.bmm.
func SuggestedFor(bitFile string) string {
	base := bitFile
	if strings.HasSuffix(strings.ToLower(base), ".bit") {
		base = base[:len(base)-len(".bit")]
	}
	return base + "_bd.bmm"
}
