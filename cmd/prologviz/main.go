// Command prologviz demonstrates the inference core: it loads the family
// knowledge base, streams query answers lazily, and prints the trace tree
// a visualizer would render.
package main

import (
	"fmt"

	"github.com/SISHRAK0/PrologViz/pkg/prolog"
)

const familyKB = `
	% facts
	parent(tom, mary). parent(tom, bob).
	parent(mary, ann). parent(mary, pat).
	parent(bob, jim). parent(bob, liz).

	% rules
	ancestor(?x, ?y) :- parent(?x, ?y).
	ancestor(?x, ?z) :- parent(?x, ?y), ancestor(?y, ?z).
	grandparent(?x, ?z) :- parent(?x, ?y), parent(?y, ?z).
`

func main() {
	fmt.Println("=== PrologViz Inference Core ===")
	fmt.Println()

	kb := prolog.NewKnowledgeBase()
	defer kb.Close()
	if err := kb.Consult(familyKB); err != nil {
		fmt.Println("loading knowledge base:", err)
		return
	}

	simpleQuery(kb)
	tracedQuery(kb)
	arithmetic(kb)
	statistics(kb)
}

func simpleQuery(kb *prolog.KnowledgeBase) {
	fmt.Println("1. Who are tom's descendants?")
	sols, err := kb.QueryString("ancestor(tom, ?d)", prolog.QueryOptions{})
	if err != nil {
		fmt.Println("   query:", err)
		return
	}
	for _, row := range sols.All() {
		fmt.Printf("   ?d = %s\n", row["d"])
	}
	fmt.Println()
}

func tracedQuery(kb *prolog.KnowledgeBase) {
	fmt.Println("2. Traced: grandparent(tom, ?g)")
	sols, err := kb.QueryString("grandparent(tom, ?g)", prolog.QueryOptions{Trace: true})
	if err != nil {
		fmt.Println("   query:", err)
		return
	}
	for _, row := range sols.All() {
		fmt.Printf("   ?g = %s\n", row["g"])
	}

	snap := sols.Trace()
	fmt.Printf("   trace: %d calls, %d exits, %d fails\n",
		snap.Stats.Calls, snap.Stats.Exits, snap.Stats.Fails)
	for _, node := range snap.Tree {
		for i := 0; i < node.Depth; i++ {
			fmt.Print("  ")
		}
		fmt.Printf("   - %s %v [%s, %d results]\n",
			node.Predicate, node.Args, node.Status, node.Results)
	}
	fmt.Println()
}

func arithmetic(kb *prolog.KnowledgeBase) {
	fmt.Println("3. Arithmetic and lists")
	for _, q := range []string{
		"is(?s, +(2, 3))",
		"findall(?c, parent(tom, ?c), ?l)",
		"append([1, 2], [3, 4], ?l)",
		"between(1, 5, ?x), is(?sq, *(?x, ?x))",
	} {
		sols, err := kb.QueryString(q, prolog.QueryOptions{Limit: 5})
		if err != nil {
			fmt.Println("   query:", err)
			continue
		}
		fmt.Printf("   %s => %d solution(s)\n", q, len(sols.All()))
	}
	fmt.Println()
}

func statistics(kb *prolog.KnowledgeBase) {
	stats := kb.Stats()
	fmt.Printf("4. KB stats: %d facts, %d rules, %d predicates, %d queries\n",
		stats.TotalFacts, stats.TotalRules, stats.Predicates, stats.Queries)
}
