package store

import (
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/luminosity-leds/luminosity/internal/models"
)

// CreateDevice inserts d, links it into its owner's DevicesLinked and
// appends notes to the owner's notifications, all in one transaction. The
// owner must exist; d.ID and d.UUID must be set by the caller.
func (db *DB) CreateDevice(d *models.Device, notes ...string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		owner, err := accountIn(tx, d.User)
		if err != nil {
			return err
		}
		devices := tx.Bucket(bucketDevices)
		if devices.Get([]byte(d.ID)) != nil {
			return fmt.Errorf("device %s: %w", d.ID, ErrDuplicate)
		}
		byUUID := tx.Bucket(bucketDevicesByUUID)
		if byUUID.Get([]byte(d.UUID)) != nil {
			return fmt.Errorf("device uuid %s: %w", d.UUID, ErrDuplicate)
		}
		if err := byUUID.Put([]byte(d.UUID), []byte(d.ID)); err != nil {
			return err
		}
		owned, err := tx.Bucket(bucketDevicesByOwner).CreateBucketIfNotExists([]byte(d.User))
		if err != nil {
			return err
		}
		seq, err := owned.NextSequence()
		if err != nil {
			return err
		}
		if err := owned.Put(seqKey(seq), []byte(d.ID)); err != nil {
			return err
		}
		if err := putJSON(devices, d.ID, d); err != nil {
			return err
		}
		owner.DevicesLinked = append(owner.DevicesLinked, d.ID)
		for _, n := range notes {
			owner.Notify(n)
		}
		owner.LastUpdated = d.LastUpdated
		return putJSON(tx.Bucket(bucketAccounts), owner.ID, toDoc(owner))
	})
}

func deviceIn(tx *bolt.Tx, id string) (*models.Device, error) {
	var d models.Device
	if err := getJSON(tx.Bucket(bucketDevices), id, &d); err != nil {
		return nil, fmt.Errorf("device %s: %w", id, err)
	}
	return &d, nil
}

func (db *DB) DeviceByID(id string) (*models.Device, error) {
	var d *models.Device
	err := db.bolt.View(func(tx *bolt.Tx) error {
		var err error
		d, err = deviceIn(tx, id)
		return err
	})
	return d, err
}

func (db *DB) DeviceByUUID(uuid string) (*models.Device, error) {
	var d *models.Device
	err := db.bolt.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketDevicesByUUID).Get([]byte(uuid))
		if id == nil {
			return fmt.Errorf("device uuid %s: %w", uuid, ErrNotFound)
		}
		var err error
		d, err = deviceIn(tx, string(id))
		return err
	})
	return d, err
}

// DevicesByOwner lists the owner's devices in registration order. An owner
// without devices yields an empty slice.
func (db *DB) DevicesByOwner(owner string) ([]*models.Device, error) {
	var out []*models.Device
	err := db.bolt.View(func(tx *bolt.Tx) error {
		var err error
		out, err = devicesOwnedIn(tx, owner)
		return err
	})
	if out == nil {
		out = []*models.Device{}
	}
	return out, err
}

func devicesOwnedIn(tx *bolt.Tx, owner string) ([]*models.Device, error) {
	owned := tx.Bucket(bucketDevicesByOwner).Bucket([]byte(owner))
	if owned == nil {
		return nil, nil
	}
	var out []*models.Device
	err := owned.ForEach(func(_, id []byte) error {
		d, err := deviceIn(tx, string(id))
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// SaveDevice overwrites an existing device. Ownership and UUID are fixed at
// creation and cannot be moved by a save.
func (db *DB) SaveDevice(d *models.Device) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		prev, err := deviceIn(tx, d.ID)
		if err != nil {
			return err
		}
		if prev.User != d.User || prev.UUID != d.UUID {
			return fmt.Errorf("device %s: owner and uuid are immutable", d.ID)
		}
		return putJSON(tx.Bucket(bucketDevices), d.ID, d)
	})
}

// DeleteDevice removes the device and pulls it from its owner's
// DevicesLinked.
func (db *DB) DeleteDevice(id string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		d, err := deviceIn(tx, id)
		if err != nil {
			return err
		}
		if err := deleteDeviceIn(tx, d); err != nil {
			return err
		}
		owner, err := accountIn(tx, d.User)
		if err != nil {
			// orphaned device, nothing to unlink
			return nil
		}
		owner.Unlink(d.ID)
		return putJSON(tx.Bucket(bucketAccounts), owner.ID, toDoc(owner))
	})
}

func deleteDeviceIn(tx *bolt.Tx, d *models.Device) error {
	if err := tx.Bucket(bucketDevicesByUUID).Delete([]byte(d.UUID)); err != nil {
		return err
	}
	if owned := tx.Bucket(bucketDevicesByOwner).Bucket([]byte(d.User)); owned != nil {
		c := owned.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if string(v) == d.ID {
				if err := c.Delete(); err != nil {
					return err
				}
				break
			}
		}
	}
	return tx.Bucket(bucketDevices).Delete([]byte(d.ID))
}
