// Package scriptmodel splits user-supplied script text into the fragments
// the agent executes one at a time, and queues them for dispatch.
package scriptmodel

import "regexp"

// RestartMarker, wherever it appears in script text (also mid-line), ends
// the current fragment and starts a new one that only runs after the
// application under test has been restarted.
const RestartMarker = "<<<RESTART FROM HERE>>>"

var splitPattern = regexp.MustCompile(regexp.QuoteMeta(RestartMarker) + "|\n")

// Fragment is one independently executable slice of a script file.
type Fragment struct {
	FileName string
	// StartLine is the 1-based line number of code within FileName.
	StartLine int
	Code      string
	// RunAfterAppStart marks a fragment that must not be dispatched until
	// the controller has restarted the application since the previous
	// RunAfterAppStart fragment was dispatched.
	RunAfterAppStart bool
}

// Split divides scriptCode into fragments at each RestartMarker occurrence.
// Line numbers are tracked the same way the original does: they only
// advance at a marker split, using the line the marker sits on, so a
// fragment's StartLine is the first line of its own text, not the line
// the previous fragment ended on.
func Split(fileName, scriptCode string) []Fragment {
	var out []Fragment
	matches := splitPattern.FindAllStringIndex(scriptCode, -1)

	lineno := 1
	curLine := 1
	prevPos := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if scriptCode[start] == '\n' {
			curLine++
			continue
		}
		out = append(out, Fragment{
			FileName:  fileName,
			StartLine: lineno,
			Code:      scriptCode[prevPos:start],
		})
		lineno = curLine
		prevPos = end
	}
	if prevPos < len(scriptCode) {
		out = append(out, Fragment{
			FileName:  fileName,
			StartLine: lineno,
			Code:      scriptCode[prevPos:],
		})
	}
	return out
}
