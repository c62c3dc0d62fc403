package judge

import (
	"fmt"
	"strings"

	"github.com/pavelanni/proctor/internal/model"
)

const (
	runningReport = "Sending submission to Execution Service...\nAllocating Docker container...\n"
	testsHeader   = "Running tests...\n\n"
	passedFooter  = "All Test Cases Passed! (Runtime: 2ms)"
)

// failingCase picks the case a simulated failure reports against. Cases
// after it are not listed.
func failingCase(cases []model.TestCase) int {
	return len(cases) / 2
}

// successReport lists every case as passing.
func successReport(cases []model.TestCase) string {
	var sb strings.Builder
	sb.WriteString(runningReport)
	sb.WriteString(testsHeader)
	for i, tc := range cases {
		fmt.Fprintf(&sb, "Test Case %d: %s -> PASS\n", i+1, tc.Input)
	}
	sb.WriteString("\n")
	sb.WriteString(passedFooter)
	return sb.String()
}

// failureReport lists the cases up to the failing one, which is last and
// carries its expected and actual values.
func failureReport(cases []model.TestCase) string {
	var sb strings.Builder
	sb.WriteString(runningReport)
	sb.WriteString(testsHeader)
	if len(cases) == 0 {
		sb.WriteString("Test run failed.")
		return sb.String()
	}
	fail := failingCase(cases)
	for i, tc := range cases[:fail] {
		fmt.Fprintf(&sb, "Test Case %d: %s -> PASS\n", i+1, tc.Input)
	}
	tc := cases[fail]
	fmt.Fprintf(&sb, "Test Case %d: %s -> FAIL\n   Expected: %s\n   Actual: %s", fail+1, tc.Input, tc.Expected, tc.Mismatch)
	return sb.String()
}

// errorReport is shown when the remote evaluator could not be reached.
func errorReport(err error) string {
	return runningReport + "Execution service error: " + err.Error()
}
