package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// writeArchive packs the candidates into a gzip-compressed tar at path. A
// partial archive is removed on failure so retention never sees a corrupt
// file.
func writeArchive(path string, members []candidate) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(path)
		}
	}()

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)

	for _, member := range members {
		if err = addMember(tw, member); err != nil {
			return fmt.Errorf("archive %s: %w", member.Name, err)
		}
	}

	if err = tw.Close(); err != nil {
		return fmt.Errorf("finalize tar stream: %w", err)
	}
	if err = gz.Close(); err != nil {
		return fmt.Errorf("finalize gzip stream: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func addMember(tw *tar.Writer, member candidate) error {
	info, err := os.Stat(member.Path)
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = member.Name

	in, err := os.Open(member.Path)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if _, err := io.Copy(tw, in); err != nil {
		return err
	}
	return nil
}
