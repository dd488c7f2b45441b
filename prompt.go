package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"kybernaut/grid_world"
	"kybernaut/memory"
	"kybernaut/reinforcement"
)

// Dimensions above this require confirmation before allocation.
const confirmAbove = 1000

var (
	ErrInvalidDimension = errors.New("grid dimension must be an integer")
	ErrNotConfirmed     = errors.New("allocation not confirmed")
)

// readLine returns the next trimmed line of @in; a final line without a newline is accepted.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readDimension returns @flagDim when set, else prompts for one on @in.
// The dimension is validated before anything is allocated.
func readDimension(in *bufio.Reader, out io.Writer, flagDim int) (n int, err error) {
	n = flagDim
	if n == 0 {
		fmt.Fprintf(out, "Enter grid dimension (>= %d): ", grid_world.MIN_DIMENSION)
		var line string
		if line, err = readLine(in); err != nil {
			return 0, fmt.Errorf("read dimension: %w", err)
		}
		if n, err = strconv.Atoi(line); err != nil {
			return 0, fmt.Errorf("%w: got %q", ErrInvalidDimension, line)
		}
	}
	if n < grid_world.MIN_DIMENSION {
		return 0, fmt.Errorf("%w: got %d", grid_world.ErrDimensionTooSmall, n)
	}
	return n, nil
}

// confirmDimension prints the estimated footprint of large grids and requires
// @yes or an interactive "y" to proceed.
func confirmDimension(
	in *bufio.Reader,
	out io.Writer,
	n int,
	strategy memory.Strategy,
	yes bool,
) error {
	if n <= confirmAbove {
		return nil
	}
	bytes, ok := reinforcement.Footprint(n, strategy)
	if !ok || bytes > reinforcement.MAX_FOOTPRINT {
		return fmt.Errorf("%w: dimension %d", reinforcement.ErrAllocation, n)
	}

	fmt.Fprintf(out, "A %dx%d grid needs about %.1f MB.\n", n, n, float64(bytes)/(1<<20))
	if yes {
		return nil
	}
	fmt.Fprint(out, "Continue? [y/N]: ")
	answer, err := readLine(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfirmed, err)
	}
	if answer = strings.ToLower(answer); answer != "y" && answer != "yes" {
		return ErrNotConfirmed
	}
	return nil
}
