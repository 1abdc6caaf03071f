package dispatch

import (
	"strings"

	"github.com/Rixmerz/MultiComputer/input"
	"github.com/Rixmerz/MultiComputer/internal/types"
)

type namedKey struct {
	key   string
	label string
}

var specialKeys = map[types.SpecialKeyName]namedKey{
	types.KeyBackspace: {input.KeyBackspace, "Backspace"},
	types.KeyEnter:     {input.KeyEnter, "Enter"},
	types.KeyTab:       {input.KeyTab, "Tab"},
	types.KeyEscape:    {input.KeyEscape, "Escape"},
	types.KeyDelete:    {input.KeyDelete, "Delete"},
	types.KeySpace:     {input.KeySpace, "Space"},
}

// shortcuts maps each name to the character pressed under the platform
// modifier.
var shortcuts = map[types.ShortcutName]namedKey{
	types.ShortcutSelectAll: {"a", "Select All"},
	types.ShortcutCopy:      {"c", "Copy"},
	types.ShortcutPaste:     {"v", "Paste"},
	types.ShortcutCut:       {"x", "Cut"},
	types.ShortcutUndo:      {"z", "Undo"},
	types.ShortcutRedo:      {"y", "Redo"},
	types.ShortcutSave:      {"s", "Save"},
	types.ShortcutFind:      {"f", "Find"},
	types.ShortcutNew:       {"n", "New"},
	types.ShortcutOpen:      {"o", "Open"},
	types.ShortcutPrint:     {"p", "Print"},
	types.ShortcutRefresh:   {"r", "Refresh"},
}

func (k namedKey) keyLabel() string { return strings.ToUpper(k.key) }
