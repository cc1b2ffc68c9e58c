package main

// TODO:
// - rate limiting on the write endpoints
// - request tracing
func main() {
	startWithDig()
}
