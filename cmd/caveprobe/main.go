// Command caveprobe is an interactive REPL for exercising a
// cavebiome.CaveBiomeService without booting a full voxel engine: a small,
// throwaway inspection tool built on the same go-prompt stack the engine
// already depends on.
package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/voxelforge/cavebiome/cavebiome"
	"github.com/voxelforge/cavebiome/internal/refgen"
)

const promptPrefix = "caveprobe> "

func main() {
	log := slog.Default()

	svc := cavebiome.NewCaveBiomeService(cavebiome.Config{Log: log})
	if err := svc.RegisterGenerator(refgen.Checkerboard{Palette: 4}); err != nil {
		log.Error("register generator", "err", err)
		return
	}
	if err := svc.Init(12345, nil); err != nil {
		log.Error("init service", "err", err)
		return
	}
	defer svc.Deinit()

	view, err := svc.NewView(cavebiome.FragmentPosition{VoxelSize: 1}, 256, 64)
	if err != nil {
		log.Error("new view", "err", err)
		return
	}
	defer view.Close()

	fmt.Println("caveprobe — commands: biome x y z | height x y z returnHeight | interp x y z field | bulkinterp x y z voxelSize n field | exit")
	for {
		line := strings.TrimSpace(prompt.Input(promptPrefix, completer,
			prompt.OptionTitle("caveprobe"),
			prompt.OptionPrefix(promptPrefix),
		))
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}
		execute(view, line)
	}
}

func completer(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix([]prompt.Suggest{
		{Text: "biome", Description: "biome x y z"},
		{Text: "height", Description: "height x y z returnHeight"},
		{Text: "interp", Description: "interp x y z field"},
		{Text: "bulkinterp", Description: "bulkinterp x y z voxelSize n field"},
		{Text: "exit", Description: "quit caveprobe"},
	}, d.GetWordBeforeCursor(), true)
}

func execute(view *cavebiome.BiomeMapView, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "biome":
		x, y, z, ok := parseXYZ(fields[1:])
		if !ok {
			fmt.Println("usage: biome x y z")
			return
		}
		b := view.Biome(x, y, z)
		fmt.Printf("biome at (%d,%d,%d): %+v\n", x, y, z, b)
	case "height":
		if len(fields) != 5 {
			fmt.Println("usage: height x y z returnHeight")
			return
		}
		x, y, z, ok := parseXYZ(fields[1:4])
		rh, err := strconv.Atoi(fields[4])
		if !ok || err != nil {
			fmt.Println("usage: height x y z returnHeight")
			return
		}
		b, seed, h := view.BiomeColumnAndSeed(x, y, z, int32(rh))
		fmt.Printf("biome at (%d,%d,%d): %+v seed=%d extends %d world units up\n", x, y, z, b, seed, h)
	case "interp":
		if len(fields) != 5 {
			fmt.Println("usage: interp x y z field")
			return
		}
		x, y, z, ok := parseXYZ(fields[1:4])
		if !ok {
			fmt.Println("usage: interp x y z field")
			return
		}
		v := view.InterpolateValue(x, y, z, fields[4])
		fmt.Printf("%s at (%d,%d,%d): %f\n", fields[4], x, y, z, v)
	case "bulkinterp":
		if len(fields) != 7 {
			fmt.Println("usage: bulkinterp x y z voxelSize n field")
			return
		}
		x, y, z, ok := parseXYZ(fields[1:4])
		voxelSize, errVS := strconv.Atoi(fields[4])
		n, errN := strconv.Atoi(fields[5])
		if !ok || errVS != nil || errN != nil || n <= 0 {
			fmt.Println("usage: bulkinterp x y z voxelSize n field")
			return
		}
		field := fields[6]
		out := make([]float32, n*n*n)
		view.BulkInterpolateValue(field, x, y, z, int32(voxelSize), n, n, n, out, cavebiome.AddToMap, 1)
		min, max, sum := out[0], out[0], float32(0)
		for _, f := range out {
			if f < min {
				min = f
			}
			if f > max {
				max = f
			}
			sum += f
		}
		fmt.Printf("%s over %d³ grid from (%d,%d,%d): min=%f max=%f mean=%f\n", field, n, x, y, z, min, max, sum/float32(len(out)))
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}

func parseXYZ(fields []string) (x, y, z int32, ok bool) {
	if len(fields) != 3 {
		return 0, 0, 0, false
	}
	vals := make([]int32, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = int32(n)
	}
	return vals[0], vals[1], vals[2], true
}
