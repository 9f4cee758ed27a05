// scenetool is a CLI utility for inspecting and editing navscene archives.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/navscene/internal/archive"
	"github.com/Faultbox/navscene/internal/config"
	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/preview"
	"github.com/Faultbox/navscene/internal/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "add-model":
		cmdAddModel(args)
	case "add-point":
		cmdAddPoint(args)
	case "gltf":
		cmdGLTF(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`scenetool - navscene archive utility

Usage:
  scenetool <command> [options]

Commands:
  info <scene.zip>                       Show manifest summary
  list <scene.zip>                       List archive members
  extract <scene.zip> [output]           Extract all members to directory
  add-model [-correction c] <scene.zip> <mesh.obj>
                                         Import a mesh and add it to the scene
  add-point [-label l] [-source] [-dest] [-pos x,y,z] <scene.zip>
                                         Add a navigation point
  gltf <scene.zip> <out.gltf|out.glb>    Write a glTF preview

A missing archive is created by add-model and add-point.

Examples:
  scenetool info office.zip
  scenetool add-model office.zip desk.obj
  scenetool add-point -label Lobby -source -pos 0,0,2 office.zip
  scenetool gltf office.zip office.glb`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func readArchive(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		fail("Error: %v", err)
	}
	return data
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fail("Usage: scenetool info <scene.zip>")
	}

	manifest, files, err := archive.Contents(readArchive(args[0]))
	if err != nil {
		fail("Error: %v", err)
	}

	var totalSize uint64
	for _, f := range files {
		totalSize += f.Size
	}

	fmt.Printf("Archive: %s\n", args[0])
	fmt.Printf("Members: %d\n", len(files))
	fmt.Printf("Size:    %.2f KB\n", float64(totalSize)/1024)
	fmt.Printf("Objects: %d\n", len(manifest.Objects))
	fmt.Println()

	var points, models int
	for _, e := range manifest.Objects {
		if e.IsNavigation() {
			points++
			role := ""
			switch {
			case e.IsSource && e.IsDestination:
				role = " [source, destination]"
			case e.IsSource:
				role = " [source]"
			case e.IsDestination:
				role = " [destination]"
			}
			fmt.Printf("  point  %-20q at %v%s\n", e.LabelString(), e.Position, role)
			continue
		}
		models++
		fmt.Printf("  model  %-20s at %v scale %v\n", e.MeshFile(), e.Position, e.Scale)
	}

	fmt.Println()
	fmt.Printf("Navigation points: %d\n", points)
	fmt.Printf("Models:            %d\n", models)
}

func cmdList(args []string) {
	if len(args) < 1 {
		fail("Usage: scenetool list <scene.zip>")
	}

	_, files, err := archive.Contents(readArchive(args[0]))
	if err != nil && files == nil {
		fail("Error: %v", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	for _, f := range files {
		fmt.Printf("%10d  %s\n", f.Size, f.Name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nWarning: %v\n", err)
	}
}

func cmdExtract(args []string) {
	if len(args) < 1 {
		fail("Usage: scenetool extract <scene.zip> [output_dir]")
	}

	outputDir := "."
	if len(args) > 1 {
		outputDir = args[1]
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fail("Error creating directory: %v", err)
	}

	if err := archive.Extract(readArchive(args[0]), outputDir); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Extracted to %s\n", outputDir)
}

// loadScene rebuilds the scene stored at path, or returns an empty scene
// when the file does not exist yet.
func loadScene(path string, p *importer.Pipeline) *scene.Scene {
	sc := scene.New()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return sc
	}

	res, err := archive.ImportFile(path, p, "")
	if err != nil {
		fail("Error: %v", err)
	}
	for _, obj := range res.Objects {
		sc.Add(obj)
	}
	if res.Warnings != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", res.Warnings)
	}
	return sc
}

func saveScene(sc *scene.Scene, path string) {
	report, err := archive.ExportToFile(sc, path)
	if err != nil {
		fail("Error writing archive: %v", err)
	}
	if report.Warnings != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", report.Warnings)
	}
	fmt.Printf("Wrote %s (%d objects, %d mesh files)\n", path, report.Entries, report.MeshFiles)
}

func pipeline(correction string) *importer.Pipeline {
	cfg := config.Default().Import
	if correction != "" {
		cfg.Correction = correction
	}
	importCfg, err := importer.ConfigFrom(cfg)
	if err != nil {
		fail("Error: %v", err)
	}
	return importer.New(importCfg)
}

func cmdAddModel(args []string) {
	fs := flag.NewFlagSet("add-model", flag.ExitOnError)
	correction := fs.String("correction", "", "Import correction preset (none, default, webgl)")
	verbose := fs.Bool("v", false, "Log import details to stderr")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fail("Usage: scenetool add-model [-correction c] <scene.zip> <mesh.obj>")
	}
	if *verbose {
		_ = logger.Init("debug", "")
	}

	p := pipeline(*correction)
	sc := loadScene(fs.Arg(0), p)

	obj, err := p.ImportFromPath(fs.Arg(1))
	if err != nil {
		fail("Error: %v", err)
	}
	sc.Add(obj)
	fmt.Printf("Added model %s (%s)\n", obj.Name, filepath.Base(fs.Arg(1)))

	saveScene(sc, fs.Arg(0))
}

func cmdAddPoint(args []string) {
	fs := flag.NewFlagSet("add-point", flag.ExitOnError)
	label := fs.String("label", "", "Navigation label")
	source := fs.Bool("source", false, "Mark as route source")
	dest := fs.Bool("dest", false, "Mark as route destination")
	pos := fs.String("pos", "0,0,0", "Position as x,y,z")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: scenetool add-point [-label l] [-source] [-dest] [-pos x,y,z] <scene.zip>")
	}

	position, err := parseVec3(*pos)
	if err != nil {
		fail("Error: -pos: %v", err)
	}

	sc := loadScene(fs.Arg(0), pipeline(""))
	sc.Add(scene.NewNavigationPoint(scene.NavInfo{
		Label:         *label,
		IsSource:      *source,
		IsDestination: *dest,
	}, position))
	fmt.Printf("Added navigation point %q at %s\n", *label, logger.FormatVec3(position))

	saveScene(sc, fs.Arg(0))
}

func cmdGLTF(args []string) {
	if len(args) < 2 {
		fail("Usage: scenetool gltf <scene.zip> <out.gltf|out.glb>")
	}

	sc := loadScene(args[0], pipeline(""))
	binary := strings.EqualFold(filepath.Ext(args[1]), ".glb")

	f, err := os.Create(args[1])
	if err != nil {
		fail("Error: %v", err)
	}
	if err := preview.WriteGLTF(f, sc, binary); err != nil {
		f.Close()
		fail("Error: %v", err)
	}
	if err := f.Close(); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Wrote %s (%d objects)\n", args[1], sc.Len())
}

func parseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
