// Package retrieval implements hybrid document retrieval: a lexical BM25
// lane, a semantic vector lane, a fingerprint based merge and an optional
// rerank pass.
//
// Each lane is a fallback chain of one or more indexes, so a failing or slow
// index is isolated: the retriever degrades to whatever lanes still answer
// and reports which ones contributed through the method label
// (e.g. "vector+bm25+reranked", "bm25", "none").
package retrieval
