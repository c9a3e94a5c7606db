//go:build !linux

package extract

import "os"

func adviseSequential(*os.File) {}

func adviseDontNeed(*os.File) {}
