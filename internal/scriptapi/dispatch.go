package scriptapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ehrlich-b/deskmonkey/internal/interp"
)

// Dispatch maps one parsed Test.<op>(...) call onto the matching Surface
// method, unquoting string arguments and parsing numeric/list ones. It is
// meant to be passed directly as interp.Interpreter.Eval's dispatch
// callback.
func (s *Surface) Dispatch(call interp.Call) error {
	args := call.Args
	switch call.Op {
	case "mouseClick":
		if len(args) != 4 {
			return argCountErr(call.Op, 4, len(args))
		}
		x, err := parseIntArg(args[2])
		if err != nil {
			return err
		}
		y, err := parseIntArg(args[3])
		if err != nil {
			return err
		}
		s.MouseClick(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]), x, y)
	case "mouseDClick":
		if len(args) != 4 {
			return argCountErr(call.Op, 4, len(args))
		}
		x, err := parseIntArg(args[2])
		if err != nil {
			return err
		}
		y, err := parseIntArg(args[3])
		if err != nil {
			return err
		}
		s.MouseDClick(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]), x, y)
	case "keyClick":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		s.KeyClick(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]))
	case "activateItem":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		s.ActivateItem(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]))
	case "doubleClickItem":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		s.DoubleClickItem(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]))
	case "activateItemInView":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		pos, err := parseIntListArg(args[1])
		if err != nil {
			return err
		}
		s.ActivateItemInView(interp.UnquoteArg(args[0]), pos)
	case "expandItemInTree":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		s.ExpandItemInTree(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]))
	case "expandItemInTreeView":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		pos, err := parseIntListArg(args[1])
		if err != nil {
			return err
		}
		s.ExpandItemInTreeView(interp.UnquoteArg(args[0]), pos)
	case "wait":
		if len(args) != 1 {
			return argCountErr(call.Op, 1, len(args))
		}
		ms, err := parseIntArg(args[0])
		if err != nil {
			return err
		}
		s.Wait(ms)
	case "chooseWindowWithTitle":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		s.ChooseWindowWithTitle(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]))
	case "setDemonstrationMode":
		if len(args) != 1 {
			return argCountErr(call.Op, 1, len(args))
		}
		on, err := parseBoolArg(args[0])
		if err != nil {
			return err
		}
		s.SetDemonstrationMode(on)
	case "pressButtonWithText":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		s.PressButtonWithText(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]))
	case "assert":
		if len(args) != 1 {
			return argCountErr(call.Op, 1, len(args))
		}
		cond, err := parseBoolArg(args[0])
		if err != nil {
			return err
		}
		s.Assert(cond)
	case "assertEqual":
		if len(args) != 2 {
			return argCountErr(call.Op, 2, len(args))
		}
		s.AssertEqual(interp.UnquoteArg(args[0]), interp.UnquoteArg(args[1]))
	case "log":
		if len(args) != 1 {
			return argCountErr(call.Op, 1, len(args))
		}
		s.Log(interp.UnquoteArg(args[0]))
	case "getObjectById":
		if len(args) != 1 {
			return argCountErr(call.Op, 1, len(args))
		}
		if _, err := s.GetObjectById(interp.UnquoteArg(args[0])); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown operation Test.%s", call.Op)
	}
	return nil
}

func argCountErr(op string, want, got int) error {
	return fmt.Errorf("Test.%s expects %d argument(s), got %d", op, want, got)
}

func parseIntArg(a string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, fmt.Errorf("expected integer argument, got %q", a)
	}
	return n, nil
}

func parseBoolArg(a string) (bool, error) {
	switch strings.TrimSpace(a) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("expected boolean argument, got %q", a)
}

// parseIntListArg parses a `[1,2,3]`-style bracketed list of integers, used
// by activateItemInView/expandItemInTreeView for a model index path.
func parseIntListArg(a string) ([]int, error) {
	a = strings.TrimSpace(a)
	if len(a) < 2 || a[0] != '[' || a[len(a)-1] != ']' {
		return nil, fmt.Errorf("expected bracketed list argument, got %q", a)
	}
	inner := strings.TrimSpace(a[1 : len(a)-1])
	if inner == "" {
		return nil, nil
	}
	parts := strings.Split(inner, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := parseIntArg(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
