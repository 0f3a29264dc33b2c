/*
Package curator is a recommendation workflow engine built as a small, fixed state machine.

Given a username, a store and a result size, a run moves through four stages:

	start → fetch_user_history → fetch_inventory → build_candidates → recommend_items → terminal

The first two stages read from a Catalog (flat files, SQLite, Loam or memory). The third
asks a language-model Capability for likely items and parses its reply strictly; any
capability failure or unparsable reply leaves an empty candidate list and the run
continues. The last stage ranks the candidates deterministically and keeps the first top_k.

Only data-source failures abort a run. In that case no partial state is returned.

# Usage

	eng, err := curator.New(
		curator.WithCatalog(file.NewCatalog("./data")),
		curator.WithCapability(ollamaClient),
	)
	if err != nil {
		log.Fatal(err)
	}

	rec, err := eng.Recommend(ctx, curator.Request{Username: "richard", StoreID: "ABC", TopK: 3})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(rec.Items)

# Observability

Lifecycle hooks (see pkg/observability) report run, stage and tool events, and every
run and stage is traced with OpenTelemetry when a TracerProvider is configured.
*/
package curator
