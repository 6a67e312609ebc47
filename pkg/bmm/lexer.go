package bmm

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// BMMLexer tokenizes Xilinx block memory map files as read by data2mem.
var BMMLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments, C and C++ style
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?:[^*]|\*+[^*/])*\*+/`},

	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Section keywords. END_ forms come first so the plain forms never
	// swallow their prefix.
	{Name: "KwEndAddressMap", Pattern: `(?i)\bEND_ADDRESS_MAP\b`},
	{Name: "KwEndAddressSpace", Pattern: `(?i)\bEND_ADDRESS_SPACE\b`},
	{Name: "KwEndBusBlock", Pattern: `(?i)\bEND_BUS_BLOCK\b`},
	{Name: "KwAddressMap", Pattern: `(?i)\bADDRESS_MAP\b`},
	{Name: "KwAddressSpace", Pattern: `(?i)\bADDRESS_SPACE\b`},
	{Name: "KwBusBlock", Pattern: `(?i)\bBUS_BLOCK\b`},

	// Placement constraints on a block RAM line
	{Name: "KwLoc", Pattern: `(?i)\bLOC\b`},
	{Name: "KwPlaced", Pattern: `(?i)\bPLACED\b`},

	{Name: "Number", Pattern: `0[xX][0-9A-Fa-f]+|[0-9]+`},

	// Instance paths use '/' and '.' as hierarchy separators
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_/.$]*`},

	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Equals", Pattern: `=`},
})
