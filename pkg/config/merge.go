package config

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// MergeConfig 将 src 中的非零值覆盖到 dst 上
// - dst 和 src 都为 nil 时返回 ErrNilConfig
// - 任一为 nil 时返回另一个
// - 切片整体覆盖，map 按 key 合并，结构体和指针递归合并
func MergeConfig[T any](dst, src *T) (*T, error) {
	if dst == nil && src == nil {
		return nil, errors.Wrap(ErrNilConfig, "both dst and src are nil")
	}
	if dst == nil {
		return src, nil
	}
	if src == nil {
		return dst, nil
	}

	if err := mergeValues(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, err
	}
	return dst, nil
}

func mergeValues(dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return mergeStruct(dst, src)
	case reflect.Map:
		return mergeMap(dst, src)
	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return mergeValues(dst.Elem(), src.Elem())
	default:
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

func mergeStruct(dst, src reflect.Value) error {
	srcType := src.Type()
	for i := 0; i < src.NumField(); i++ {
		field := srcType.Field(i)
		if !field.IsExported() {
			continue
		}

		dstField := dst.FieldByName(field.Name)
		if !dstField.IsValid() || !dstField.CanSet() {
			continue
		}

		if err := mergeValues(dstField, src.Field(i)); err != nil {
			return errors.Wrapf(err, "failed to merge field %s", field.Name)
		}
	}
	return nil
}

func mergeMap(dst, src reflect.Value) error {
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	iter := src.MapRange()
	for iter.Next() {
		key := iter.Key()
		existing := dst.MapIndex(key)
		if !existing.IsValid() {
			dst.SetMapIndex(key, iter.Value())
			continue
		}

		merged := reflect.New(dst.Type().Elem()).Elem()
		merged.Set(existing)
		if err := mergeValues(merged, iter.Value()); err != nil {
			return err
		}
		dst.SetMapIndex(key, merged)
	}
	return nil
}
