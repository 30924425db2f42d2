// Package storage writes finished archives to the output directory.
//
// Writes go to a temporary file in the destination directory and are renamed
// into place, so a crash never leaves a truncated archive under the final
// name. When overwriting is disabled, an existing file with the same name is
// reported as an error instead.
//
//	manager, err := storage.NewManager(cfg.Output.Directory, cfg.Output.OverwriteExisting)
//	if err != nil {
//	    return err
//	}
//	path, err := manager.WriteArchive("alice.zip", builder)
package storage
