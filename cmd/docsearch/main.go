// Command docsearch builds an in-memory search index over a documentation
// generator's entry list and serves or queries it.
package main

func main() {
	Execute()
}
