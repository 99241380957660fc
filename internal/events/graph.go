package events

import "github.com/ClaudioL888/empathia/internal/models"

// BuildSentimentGraph builds the label co-occurrence graph for a quote set:
// one node per distinct sentiment label sized by occurrence count, and a
// complete graph over the labels (weight 1 per pair) when two or more appear.
func BuildSentimentGraph(quotes []models.RepresentativeQuote) models.NetworkGraph {
	counts := make(map[models.SentimentLabel]int)
	var order []models.SentimentLabel
	for _, quote := range quotes {
		if quote.Label == "" {
			continue
		}
		if _, seen := counts[quote.Label]; !seen {
			order = append(order, quote.Label)
		}
		counts[quote.Label]++
	}

	graph := models.NetworkGraph{Nodes: []models.GraphNode{}, Edges: []models.GraphEdge{}}
	for _, label := range order {
		graph.Nodes = append(graph.Nodes, models.GraphNode{
			ID:    string(label),
			Label: string(label),
			Size:  counts[label],
		})
	}
	if len(order) >= 2 {
		for i, src := range order {
			for _, dst := range order[i+1:] {
				graph.Edges = append(graph.Edges, models.GraphEdge{
					Source: string(src),
					Target: string(dst),
					Weight: 1,
				})
			}
		}
	}
	return graph
}
