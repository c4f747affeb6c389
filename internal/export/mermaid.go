package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/historicalcourt/internal/court"
)

// GenerateMermaid produces a Mermaid graph TD diagram of a completed run.
// Pipeline nodes are chained in execution order; the trial loop becomes a
// subgraph labelled with its iteration count and how it ended.
func GenerateMermaid(res *court.Result) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var prev string
	for i, n := range res.Nodes {
		id := fmt.Sprintf("N%d", i)
		if n.Outcome.Loop != "" {
			sb.WriteString(fmt.Sprintf("  subgraph %s[\"%s: %d iteration(s), %s\"]\n",
				id, n.Node, n.Outcome.Iterations, n.Outcome.Loop))
			sb.WriteString(fmt.Sprintf("    %s_d[\"%s\"] --> %s_j[\"%s\"]\n", id, court.NodeDefense, id, court.NodeJudge))
			sb.WriteString(fmt.Sprintf("    %s_p[\"%s\"] --> %s_j\n", id, court.NodeProsecution, id))
			sb.WriteString(fmt.Sprintf("    %s_j -. continue .-> %s_d\n", id, id))
			sb.WriteString(fmt.Sprintf("    %s_j -. continue .-> %s_p\n", id, id))
			sb.WriteString("  end\n")
		} else {
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, n.Node))
		}
		if prev != "" {
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", prev, id))
		}
		prev = id
	}
	return sb.String()
}
