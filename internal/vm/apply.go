package vm

import (
	"context"
	"fmt"
	"log"

	"github.com/corralvm/corral/internal/cloudinit"
	"github.com/corralvm/corral/internal/config"
	"github.com/corralvm/corral/internal/configurator"
	"github.com/corralvm/corral/internal/hooks"
	corrallibvirt "github.com/corralvm/corral/internal/libvirt"
	"github.com/corralvm/corral/internal/machine"
	"github.com/corralvm/corral/internal/naming"
	"github.com/corralvm/corral/internal/storage"
)

// Plan loads a fleet file and builds every VM definition without touching
// libvirt. This is the pure half of the pipeline; Apply builds on it.
func Plan(configPath string, registry *hooks.Registry) ([]*machine.Definition, error) {
	doc, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}

	return configurator.New(registry).Configure(doc)
}

// Apply runs Plan and then issues the configuration calls each definition
// implies: ensure pools, check the box image, upload the seed ISO, create
// the boot volume and define the domain.
//
// The first failure aborts the whole run; there is no per-node isolation
// and no cleanup of nodes already defined.
func Apply(ctx context.Context, configPath string, registry *hooks.Registry) error {
	defs, err := Plan(configPath, registry)
	if err != nil {
		return err
	}

	log.Printf("Connecting to libvirt...")
	client, err := corrallibvirt.ConnectWithContext(ctx, "", 0)
	if err != nil {
		return fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("Warning: failed to close libvirt connection: %v", err)
		}
	}()

	return applyWithDeps(ctx, defs, client.Libvirt(), storage.NewManager(client.Libvirt()))
}

// applyWithDeps applies definitions with injected dependencies so tests
// can observe the exact call sequence.
func applyWithDeps(ctx context.Context, defs []*machine.Definition, lv libvirtClient, sm storageManager) error {
	log.Printf("Ensuring storage pools exist...")
	if err := sm.EnsureDefaultPools(ctx); err != nil {
		return fmt.Errorf("failed to ensure storage pools: %w", err)
	}

	for _, def := range defs {
		if err := applyDefinition(ctx, def, lv, sm); err != nil {
			return fmt.Errorf("node %q: %w", def.Name, err)
		}
	}

	return nil
}

func applyDefinition(ctx context.Context, def *machine.Definition, lv libvirtClient, sm storageManager) error {
	log.Printf("Checking if domain '%s' already exists...", def.Name)
	if _, err := lv.DomainLookupByName(def.Name); err == nil {
		return fmt.Errorf("domain already exists")
	}

	// The box image must already be present in the images pool. Fetching
	// it is the hypervisor tooling's job; the URL override only improves
	// the error.
	if def.Box != "" {
		boxVolume := naming.BoxVolumeName(def.Box)
		exists, err := sm.VolumeExists(ctx, storage.DefaultImagesPool, boxVolume)
		if err != nil {
			return fmt.Errorf("failed to check box image: %w", err)
		}
		if !exists {
			if def.BoxURL != "" {
				return fmt.Errorf("box image %q not found in pool %s (fetch it from %s)",
					boxVolume, storage.DefaultImagesPool, def.BoxURL)
			}
			return fmt.Errorf("box image %q not found in pool %s", boxVolume, storage.DefaultImagesPool)
		}

		log.Printf("Creating boot volume for '%s'...", def.Name)
		err = sm.CreateVolume(ctx, storage.DefaultVMsPool, storage.VolumeSpec{
			Name:          naming.VolumeNameBoot(def.Name),
			Format:        "qcow2",
			BackingPool:   storage.DefaultImagesPool,
			BackingVolume: boxVolume,
		})
		if err != nil {
			return fmt.Errorf("failed to create boot volume: %w", err)
		}
	}

	if corrallibvirt.NeedsSeed(def) {
		log.Printf("Generating provisioning seed for '%s'...", def.Name)
		iso, err := cloudinit.GenerateISO(def)
		if err != nil {
			return fmt.Errorf("failed to generate seed ISO: %w", err)
		}

		if err := sm.UploadVolume(ctx, storage.DefaultVMsPool, naming.VolumeNameSeed(def.Name), iso); err != nil {
			return fmt.Errorf("failed to upload seed ISO: %w", err)
		}
	}

	log.Printf("Defining domain '%s'...", def.Name)
	xml, err := corrallibvirt.GenerateDomainXML(def, storage.DefaultVMsPool)
	if err != nil {
		return fmt.Errorf("failed to generate domain XML: %w", err)
	}

	dom, err := lv.DomainDefineXML(xml)
	if err != nil {
		return fmt.Errorf("failed to define domain: %w", err)
	}

	if def.Autostart {
		if err := lv.DomainSetAutostart(dom, 1); err != nil {
			return fmt.Errorf("failed to set autostart: %w", err)
		}
	}

	return nil
}
