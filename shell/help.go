package shell

import "io"

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "<n> - drop a piece in column n (1 is leftmost); the CPU answers\n")
	io.WriteString(w, "new - start again from the initial position\n")
	io.WriteString(w, "show [-color true|false] - print the board\n")
	io.WriteString(w, "last - column means from the last CPU search\n")
	io.WriteString(w, "help - this text\n")
	io.WriteString(w, "exit - quit (also bye)\n")
}
