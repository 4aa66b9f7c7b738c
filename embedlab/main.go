// Command embedlab runs the embedded-systems lab headless or serves it to a
// browser.
package main

import "github.com/sarchlab/embedlab/embedlab/cmd"

func main() {
	cmd.Execute()
}
