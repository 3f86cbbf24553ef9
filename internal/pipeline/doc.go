// Package pipeline implements the answer-routing and self-correcting
// retrieval-generation pipeline at the heart of the assistant.
//
// A question enters through Pipeline.Run and is classified into one of three
// branches: knowledge-base lookup, web lookup, or plain chat. Retrieval
// branches grade their evidence and the generated answer, and loop back
// through a question rewrite when a grade fails, bounded by a retry budget.
// The chat branch generates directly with no retrieval or grading.
//
// All collaborators (retriever, web search, completion and classification
// clients) are injected as interfaces defined in this package; the package
// itself has no knowledge of the model provider, the vector index, or the
// search engine behind them.
package pipeline
