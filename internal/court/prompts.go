package court

import (
	"embed"
	"fmt"
	"strings"
)

// Role identifies a participant of the court. Each role has an instruction
// text embedded in the binary.
type Role string

const (
	RoleDefense     Role = "defense"
	RoleProsecution Role = "prosecution"
	RoleJudge       Role = "judge"
	RoleVerdict     Role = "verdict"
	RoleSentencing  Role = "sentencing"
)

// Keyword groups each research branch looks up, one query per group.
var (
	DefenseKeywords = []string{
		"achievements", "legacy", "reforms", "contributions", "innovation", "humanitarian efforts",
	}
	ProsecutionKeywords = []string{
		"controversy", "war crimes", "oppression", "human rights violations", "scandals",
	}
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Instruction returns the embedded instruction text for r.
func Instruction(r Role) (string, error) {
	data, err := promptFS.ReadFile("prompts/" + string(r) + ".txt")
	if err != nil {
		return "", fmt.Errorf("court: no instruction for role %q: %w", r, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func mustInstruction(r Role) string {
	s, err := Instruction(r)
	if err != nil {
		panic(err)
	}
	return s
}
