// Package task описывает контракт между движком и обработчиками задач.
//
// Основные типы:
//   - Payload — входящая задача: имя (ключ маршрутизации) + непрозрачная строка
//   - Factory — именованный производитель одноразовых экземпляров Task
//   - Task    — экземпляр задачи, выполняющий payload
//   - Engine  — дескриптор движка, доступный задаче (follow-up задачи, отчёт об ошибках)
//
// Payload передаётся обработчику как есть: обработчик сам решает,
// как его десериализовать.
package task
